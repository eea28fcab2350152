package chat

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// registers the question endpoint; middleware runs on POST only
func RegisterRoutes(router *gin.RouterGroup, answerer Answerer, middleware ...gin.HandlerFunc) {
	handlers := append(slices.Clone(middleware), ChatHandler(answerer))

	router.POST("/chat", handlers...)
	router.GET("/chat", InfoHandler)
}
