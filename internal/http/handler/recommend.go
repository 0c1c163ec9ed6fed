package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vrlearn.app/beacon/internal/http/dto"
	"vrlearn.app/beacon/internal/service"
)

const maxQueryLength = 500

type RecommendHandler struct {
	service service.RecommendationService
}

func NewRecommendHandler(service service.RecommendationService) *RecommendHandler {
	return &RecommendHandler{service: service}
}

func (h *RecommendHandler) Recommend(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid recommend request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be blank"})
		return
	}
	if len(req.Query) > maxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too long"})
		return
	}

	result, err := h.service.Recommend(ctx, req.Query, req.TopK)
	if err != nil {
		// An empty result is a 200; only infrastructure failure lands here.
		slog.ErrorContext(ctx, "recommendation failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recommendation unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.FromResult(result))
}
