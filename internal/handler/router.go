package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowhub-ai/knowhub/internal/middleware"
)

type RouterDeps struct {
	Documents     *DocumentHandler
	Chat          *ChatHandler
	Feedback      *FeedbackHandler
	JWTSecret     []byte
	AskRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireAdmin())
	adminGroup.POST("/documents", deps.Documents.Upload)
	adminGroup.POST("/documents/:id/process", deps.Documents.Process)
	adminGroup.POST("/documents/:id/reprocess", deps.Documents.Reprocess)
	adminGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id/status", deps.Documents.Status)
	authGroup.GET("/documents/:id/chunks", deps.Documents.Chunks)

	askGroup := authGroup.Group("")
	if deps.AskRateWindow > 0 {
		askGroup.Use(middleware.RateLimit(deps.AskRateWindow))
	}
	askGroup.POST("/chat/ask", deps.Chat.Ask)
	askGroup.POST("/chat/ask/stream", deps.Chat.AskStream)

	authGroup.POST("/feedback", deps.Feedback.Create)
	authGroup.GET("/feedback", deps.Feedback.List)
	authGroup.GET("/feedback/stats", deps.Feedback.Stats)
}
