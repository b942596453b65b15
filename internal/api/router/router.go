package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/api/handler"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/metrics"
	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backend the API depends on is reachable
type HealthCheck func(ctx context.Context) error

// Options configures the router beyond the handler dependencies
type Options struct {
	ServiceName  string
	Auth         *auth.Service
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthCheck

	// RateLimiter is optional; nil disables limiting
	RateLimiter *RateLimiter
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	if err := dto.RegisterValidators(); err != nil {
		deps.Logger.Error("Failed to register request validators", slog.Any("error", err))
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}

	r.GET("/health", healthHandler(opts.ServiceName, opts.HealthChecks, deps.Logger))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := handler.New(deps)

	v1 := r.Group("/api/v1")
	if opts.RateLimiter != nil {
		v1.Use(opts.RateLimiter.Middleware())
	}

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", h.SignUp)
		authRoutes.POST("/signin", h.SignIn)
	}

	protected := v1.Group("", auth.Middleware(opts.Auth, deps.Logger))
	{
		protected.POST("/auth/signout", h.SignOut)
		protected.GET("/auth/me", h.Me)

		jobs := protected.Group("/jobs")
		{
			jobs.POST("", h.CreateJob)
			jobs.GET("", h.ListJobs)
			jobs.GET("/mine", h.ListMyJobs)
			jobs.GET("/:job_id", h.GetJob)

			jobs.GET("/:job_id/bids", h.ListBids)
			jobs.POST("/:job_id/bids", h.PlaceBid)
			jobs.POST("/:job_id/bids/:bid_id/accept", h.AcceptBid)

			jobs.POST("/:job_id/messages", h.SendMessage)
			jobs.GET("/:job_id/messages/:user_id", h.ListChat)
			jobs.GET("/:job_id/messages/:user_id/stream", h.StreamChat)
		}

		bids := protected.Group("/bids")
		{
			bids.GET("/mine", h.ListMyBids)
			bids.PATCH("/:bid_id", h.UpdateBid)
		}

		contracts := protected.Group("/contracts")
		{
			contracts.GET("/:contract_id", h.GetContract)
			contracts.POST("/:contract_id/payment-order", h.CreatePaymentOrder)
			contracts.POST("/:contract_id/payment/confirm", h.ConfirmPayment)
			contracts.POST("/:contract_id/payment/failure", h.RecordPaymentFailure)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
			notifications.GET("/unread-count", h.UnreadCount)
			notifications.POST("/read", h.MarkAllRead)
			notifications.GET("/unread/stream", h.StreamUnreadCount)
		}

		protected.GET("/conversations", h.ListConversations)
	}

	return r
}

func healthHandler(service string, checks map[string]HealthCheck, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", slog.String("dependency", name), slog.Any("error", err))
				results[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "healthy"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":       overall,
			"service":      service,
			"dependencies": results,
		})
	}
}
