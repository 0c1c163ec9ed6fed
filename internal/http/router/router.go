package router

import (
	"github.com/gin-gonic/gin"

	"vrlearn.app/beacon/internal/http/handler"
	"vrlearn.app/beacon/internal/service"
)

func SetupRoutes(router *gin.Engine, recs service.RecommendationService) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		recommendHandler := handler.NewRecommendHandler(recs)
		RecommendRouter(v1, recommendHandler)
	}
}
