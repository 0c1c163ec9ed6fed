package router

import (
	"github.com/gin-gonic/gin"

	"vrlearn.app/beacon/internal/http/handler"
)

func RecommendRouter(router *gin.RouterGroup, handler *handler.RecommendHandler) {
	router.POST("/recommend", handler.Recommend)
}
