package api

import (
	"net/http"

	"schoolsync-backend/internal/auth/delivery"
	authUsecase "schoolsync-backend/internal/auth/usecase"
	childDelivery "schoolsync-backend/internal/child/delivery"
	childUsecase "schoolsync-backend/internal/child/usecase"
	emailDelivery "schoolsync-backend/internal/email/delivery"
	emailUsecase "schoolsync-backend/internal/email/usecase"
	syncDelivery "schoolsync-backend/internal/sync/delivery"
	syncUsecase "schoolsync-backend/internal/sync/usecase"
	"schoolsync-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	childUc childUsecase.ChildUsecase,
	emailUc emailUsecase.EmailUsecase,
	syncUc syncUsecase.SyncUsecase,
	sseManager *sse.Manager,
) {
	authHandler := delivery.NewAuthHandler(authUc)
	childHandler := childDelivery.NewChildHandler(childUc)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	syncHandler := syncDelivery.NewSyncHandler(syncUc)

	authRequired := delivery.AuthMiddleware(authUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE stream for live sync updates
		api.GET("/stream", authRequired, func(c *gin.Context) {
			userID := c.GetString("userID")
			sseManager.ServeHTTP(c, userID)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.POST("/gmail", authRequired, authHandler.ConnectGmail)
			auth.POST("/imap", authRequired, authHandler.ConnectIMAP)
		}

		// Child profile routes (protected)
		children := api.Group("/children")
		children.Use(authRequired)
		{
			children.GET("", childHandler.ListChildren)
			children.POST("", childHandler.CreateChild)
			children.GET("/:id", childHandler.GetChild)
			children.PUT("/:id", childHandler.UpdateChild)
			children.DELETE("/:id", childHandler.DeleteChild)
		}

		// Processed mailbox routes (protected)
		emails := api.Group("/emails")
		emails.Use(authRequired)
		{
			emails.GET("", emailHandler.GetEmails)
			emails.GET("/:id", emailHandler.GetEmailByID)
			emails.POST("/:id/draft-reply", emailHandler.DraftReply)
		}

		// Extracted projections (protected)
		api.GET("/events", authRequired, emailHandler.GetEvents)

		actions := api.Group("/actions")
		actions.Use(authRequired)
		{
			actions.GET("", emailHandler.GetActions)
			actions.PATCH("/:id/toggle", emailHandler.ToggleAction)
		}

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(authRequired)
		{
			sync.POST("", syncHandler.StartSync)
			sync.GET("/status", syncHandler.GetStatus)
			sync.POST("/cancel", syncHandler.CancelSync)
			sync.GET("/history", syncHandler.GetHistory)
			sync.GET("/schedule", syncHandler.GetSchedule)
			sync.PUT("/schedule", syncHandler.UpdateSchedule)
		}
	}
}
