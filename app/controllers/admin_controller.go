package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminController serves cache maintenance, seeding and stats.
type AdminController struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

func NewAdminController(adminService *services.AdminService, logger *zap.Logger) *AdminController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminController{adminService: adminService, logger: logger}
}

// SeedGazetteer handles POST /v1/admin/gazetteer/seed.
func (ac *AdminController) SeedGazetteer(c *gin.Context) {
	var req requests.SeedGazetteerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	resp, err := ac.adminService.SeedGazetteer(c.Request.Context(), req.DryRun)
	if err != nil {
		if errors.Is(err, services.ErrSearchUnavailable) {
			respondError(c, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", err.Error())
			return
		}
		ac.logger.Error("Seed failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "SEED_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// InvalidateCache handles POST /v1/admin/cache/invalidate.
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	var req requests.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	resp, err := ac.adminService.InvalidateCache(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrCacheDisabled) {
			respondError(c, http.StatusConflict, "CACHE_DISABLED", err.Error())
			return
		}
		ac.logger.Error("Cache invalidation failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INVALIDATE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /v1/admin/stats.
func (ac *AdminController) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, ac.adminService.GetSystemStats(c.Request.Context()))
}
