package controllers

import (
	"errors"
	"net/http"

	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MatchController serves record matching and pair scoring.
type MatchController struct {
	matchService *services.MatchService
	logger       *zap.Logger
}

func NewMatchController(matchService *services.MatchService, logger *zap.Logger) *MatchController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchController{matchService: matchService, logger: logger}
}

// Match handles POST /v1/match.
func (mc *MatchController) Match(c *gin.Context) {
	var req requests.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}
	if len(req.Left)+len(req.Right) > 2*maxBatchSize {
		respondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE", "too many records")
		return
	}

	resp, err := mc.matchService.Match(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMatchRequest) {
			respondError(c, http.StatusBadRequest, "INVALID_MATCH_CONFIG", err.Error())
			return
		}
		mc.logger.Error("Match failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "MATCH_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Score handles POST /v1/score.
func (mc *MatchController) Score(c *gin.Context) {
	var req requests.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}
	resp, err := mc.matchService.Score(&req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_MATCH_CONFIG", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}
