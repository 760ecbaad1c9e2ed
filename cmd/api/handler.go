package api

import (
	authUsecase "schoolsync-backend/internal/auth/usecase"
	childUsecasePkg "schoolsync-backend/internal/child/usecase"
	emailUsecasePkg "schoolsync-backend/internal/email/usecase"
	syncUsecasePkg "schoolsync-backend/internal/sync/usecase"
	"schoolsync-backend/pkg/config"
	"schoolsync-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	childUsecase childUsecasePkg.ChildUsecase
	emailUsecase emailUsecasePkg.EmailUsecase
	syncUsecase  syncUsecasePkg.SyncUsecase
	sseManager   *sse.Manager
	config       *config.Config
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	childUc childUsecasePkg.ChildUsecase,
	emailUc emailUsecasePkg.EmailUsecase,
	syncUc syncUsecasePkg.SyncUsecase,
	sseManager *sse.Manager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:  authUc,
		childUsecase: childUc,
		emailUsecase: emailUc,
		syncUsecase:  syncUc,
		sseManager:   sseManager,
		config:       cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.childUsecase, h.emailUsecase, h.syncUsecase, h.sseManager)

	return r.Run(addr)
}
