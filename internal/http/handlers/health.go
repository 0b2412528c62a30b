package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency (database, redis) is reachable.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps    []Pinger
	timeout time.Duration
}

func NewHealthHandler(deps ...Pinger) *HealthHandler {
	return &HealthHandler{deps: deps, timeout: time.Second}
}

// liveness: process is up
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readiness: every storage dependency answers a ping
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	checks := make(gin.H, len(h.deps))
	ready := true

	for _, dep := range h.deps {
		err := dep.Ping(cctx)

		if err != nil {
			ready = false
			checks[dep.Name] = "down"
			continue
		}

		checks[dep.Name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
