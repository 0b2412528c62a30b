package handlers_test

import (
	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/geocoder89/tasklist/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

type apiErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

// asUser stands in for RequireAuth in handler tests.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxIdentity, user.Identity{ID: id, Email: id + "@example.com"})
		c.Next()
	}
}
