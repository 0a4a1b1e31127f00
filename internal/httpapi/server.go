// Package httpapi hosts the registration endpoint: it decodes multipart
// submissions, hands them to the mail pipeline, and routes the response.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"log/slog"

	"github.com/jivahealth/registration-relay/internal/form"
	"github.com/jivahealth/registration-relay/internal/mail"
)

const (
	defaultTimeout         = 5 * time.Second
	defaultDispatchTimeout = 30 * time.Second
)

// Config captures all inputs required to construct the HTTP server.
type Config struct {
	ListenAddr           string
	AllowedOrigins       []string
	RateLimitPerMinute   float64
	Sender               mail.Sender
	Mail                 mail.Config
	Limits               form.Limits
	DispatchTimeout      time.Duration
	ReadHeaderTimeout    time.Duration
	ShutdownGraceTimeout time.Duration
	Logger               *slog.Logger
}

// Server hosts the registration endpoint.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires Gin, middleware, and the registration handler.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("httpapi: listen address is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("httpapi: mail sender is required")
	}
	if cfg.Mail.FromAddress == "" || cfg.Mail.ToAddress == "" {
		return nil, errors.New("httpapi: mail from and to addresses are required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("httpapi: logger is required")
	}
	if cfg.Limits.MaxFileBytes == 0 {
		cfg.Limits = form.DefaultLimits()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(cfg.Logger))
	engine.Use(buildCORS(cfg.AllowedOrigins))
	if cfg.RateLimitPerMinute > 0 {
		engine.Use(rateLimit(cfg.RateLimitPerMinute))
	}

	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "Method not allowed"})
	})

	engine.GET("/healthz", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := newRegistrationHandler(cfg)
	engine.POST("/api/register", handler.handleSubmission)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: pickDuration(cfg.ReadHeaderTimeout, defaultTimeout),
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		logger:     cfg.Logger,
	}, nil
}

// Start begins serving HTTP traffic.
func (server *Server) Start() error {
	err := server.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates the HTTP server.
func (server *Server) Shutdown(ctx context.Context) error {
	timeout := pickDuration(server.config.ShutdownGraceTimeout, defaultTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return server.httpServer.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		started := time.Now()
		contextGin.Next()
		logger.Info(
			"http_request_completed",
			"method", contextGin.Request.Method,
			"path", contextGin.Request.URL.Path,
			"status", contextGin.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func buildCORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		cfg := cors.Config{
			AllowAllOrigins: true,
			AllowHeaders:    []string{"Content-Type", "X-Requested-With"},
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}
		return cors.New(cfg)
	}
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	}
	return cors.New(cfg)
}

func rateLimit(perMinute float64) gin.HandlerFunc {
	requestLimiter := tollbooth.NewLimiter(perMinute/60.0, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Minute})
	requestLimiter.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})

	return func(contextGin *gin.Context) {
		if httpError := tollbooth.LimitByRequest(requestLimiter, contextGin.Writer, contextGin.Request); httpError != nil {
			contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		contextGin.Next()
	}
}

func pickDuration(candidate time.Duration, fallback time.Duration) time.Duration {
	if candidate <= 0 {
		return fallback
	}
	return candidate
}
