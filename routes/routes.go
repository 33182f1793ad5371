// Package routes wires controllers and middleware into a gin engine.
//
//   - api.go: /v1 endpoints and health checks
//   - web.go: service info at /
//   - middleware.go: request id, rate limiting, request logging
package routes

import (
	"net/http"
	"time"

	"github.com/address-matcher/app/controllers"
	"github.com/address-matcher/app/responses"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers groups the handlers mounted by SetupAllRoutes.
type Controllers struct {
	Address *controllers.AddressController
	Match   *controllers.MatchController
	Admin   *controllers.AdminController
}

// Options tune the middleware stack.
type Options struct {
	VersionTag   string
	RateLimitRPS float64
	RateBurst    int
	Logger       *zap.Logger
}

// SetupAllRoutes installs middleware and every route on router.
func SetupAllRoutes(router *gin.Engine, c *Controllers, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(RateLimit(opts.RateLimitRPS, opts.RateBurst))

	SetupWebRoutes(router, opts.VersionTag)
	SetupHealthRoutes(router, c.Address)
	SetupAPIRoutes(router, c)

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:     "NOT_FOUND",
			Message:   "route not found: " + ctx.Request.Method + " " + ctx.Request.URL.Path,
			Timestamp: time.Now().Format(time.RFC3339),
			RequestID: ctx.GetString("request_id"),
		})
	})
}
