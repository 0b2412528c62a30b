package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/tasklist/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		deps       []handlers.Pinger
		wantStatus int
		wantBody   string
	}{
		{"no_deps", nil, http.StatusOK, `"status":"ready"`},
		{"all_up", []handlers.Pinger{{Name: "postgres", Ping: func(context.Context) error { return nil }}}, http.StatusOK, `"postgres":"up"`},
		{"redis_down", []handlers.Pinger{
			{Name: "postgres", Ping: func(context.Context) error { return nil }},
			{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
		}, http.StatusServiceUnavailable, `"redis":"down"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.deps...)

			r := gin.New()
			r.GET("/readyz", h.Readyz)
			r.GET("/healthz", h.Healthz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.wantStatus || !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}

			if strings.Contains(w.Body.String(), "refused") {
				t.Fatalf("dependency errors must not leak")
			}

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("healthz got %d", w.Code)
			}
		})
	}
}

func TestOpenAPISpecIsServed(t *testing.T) {
	r := gin.New()
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)
	r.GET("/docs", handlers.SwaggerUI)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/tasks:") {
		t.Fatalf("got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	if !strings.Contains(w.Body.String(), "/docs/openapi.yaml") {
		t.Fatalf("swagger ui should load the embedded openapi document")
	}
}
