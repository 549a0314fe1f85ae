package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/middleware"
	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/utils"
)

type RouterConfig struct {
	CORSOrigins       []string
	MaxRequestsPerMin int
	Tokens            *utils.TokenManager
	Logger            *zap.Logger
	// Ready backs /healthz; nil means always healthy.
	Ready func(ctx context.Context) error
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.NewRateLimiter(cfg.MaxRequestsPerMin).Middleware(cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
	}

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.AuthMiddleware(cfg.Tokens))
	{
		apiRoutes.GET("/users/:id", h.GetUser)

		apiRoutes.GET("/counselors", h.ListCounsellors)
		apiRoutes.GET("/counselors/:id", h.GetCounsellor)
		apiRoutes.PUT("/counselors/:id", h.UpdateCounsellor)
		apiRoutes.GET("/counselors/:id/reviews", h.ListReviews)
		apiRoutes.POST("/counselors/:id/reviews", h.SubmitReview)

		apiRoutes.GET("/clients/:id", h.GetClient)
		apiRoutes.PUT("/clients/:id", h.UpdateClient)

		apiRoutes.POST("/sessions", h.CreateSession)
		apiRoutes.GET("/sessions", h.ListSessions)
		apiRoutes.GET("/sessions/:id", h.GetSession)
		apiRoutes.PUT("/sessions/:id", h.UpdateSession)

		apiRoutes.POST("/chatrooms", h.CreateChatRoom)
		apiRoutes.GET("/chatrooms/:id/messages", h.ListMessages)
		apiRoutes.POST("/chatrooms/:id/messages", h.PostMessage)
		apiRoutes.GET("/chatrooms/:id/stream", h.StreamMessages)

		apiRoutes.GET("/hotlines", h.ListHotlines)
		apiRoutes.POST("/emergencies", h.CreateEmergency)
		apiRoutes.GET("/emergencies", middleware.RequireRole(models.RoleAdmin), h.ListEmergencies)
		apiRoutes.GET("/audit/logs", middleware.RequireRole(models.RoleAdmin), h.ListAuditLogs)
	}

	return r
}
