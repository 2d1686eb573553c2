package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/speech-coach/configs"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// Server adapts HTTP requests onto the assessment pipeline
type Server struct {
	config   configs.ServerConfig
	pipeline *assessment.Pipeline
	limiter  *clientLimiter
	router   *gin.Engine
	logger   logging.Logger
}

// NewServer builds the router with CORS, rate limiting and every route
func NewServer(pipeline *assessment.Pipeline, config configs.ServerConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	logger = logger.WithFields(logging.Fields{"component": "api_server"})

	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	if corsConfig, ok := buildCORS(config.CORSOrigins); ok {
		router.Use(cors.New(corsConfig))
	}

	if config.RateLimitRPS > 0 {
		s.limiter = newClientLimiter(config.RateLimitRPS, config.RateLimitBurst)
	}

	s.router = router
	s.RegisterRoutes(router)
	return s
}

// buildCORS returns false when no origin is allowed
func buildCORS(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}

	corsConfig := cors.DefaultConfig()
	for _, origin := range origins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig, true
}

// RegisterRoutes registers the health check and the versioned API
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	if s.limiter != nil {
		v1.Use(rateLimit(s.limiter))
	}
	{
		v1.POST("/assess", s.handleAssess)

		sessions := v1.Group("/sessions/:id")
		sessions.GET("/summary", s.handleSummary)
		sessions.POST("/reset", s.handleReset)
		sessions.DELETE("", s.handleDelete)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.pipeline.Registry().Run(ctx)
	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.Fields{
			"listen":         s.config.Listen,
			"rate_limit_rps": s.config.RateLimitRPS,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server", logging.Fields{"timeout": timeout.String()})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.sweep(); removed > 0 {
				s.logger.Debug("Dropped idle rate limiter buckets", logging.Fields{
					"removed":   removed,
					"remaining": s.limiter.size(),
				})
			}
		}
	}
}
