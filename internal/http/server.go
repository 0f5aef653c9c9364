package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"moneymanager/internal/auth"
	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
)

const (
	userIDKey = "userID"

	// tokenCookie is read when no Authorization header is sent.
	tokenCookie = "token"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Config tunes the HTTP surface.
type Config struct {
	Addr               string
	ClientURL          string
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server is the JSON API. It embeds http.Server so callers can run
// ListenAndServe directly.
type Server struct {
	http.Server
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(cfg Config, svc TransactionAPI, reconciler Reconciler, store Pinger, tokens TokenVerifier) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	detector := security.NewDetector(logger)

	r := gin.New()
	if err := r.SetTrustedProxies(detector.TrustedProxies()); err != nil {
		logger.Warn("Failed to set trusted proxies", log.FieldError, err.Error())
	}
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) { NotFoundError("Route not found").Write(c) })
	r.NoMethod(func(c *gin.Context) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(c)
	})

	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.ErrorContext(c.Request.Context(), "Handler panicked",
				log.FieldPath, c.Request.URL.Path,
				"panic", recovered)
			InternalServerError().Write(c)
		}),
		trace.NewMiddleware(logger).Handler(),
		security.Headers(security.DefaultHeadersConfig()),
		detector.Middleware(),
		cors.New(corsConfig(cfg.ClientURL)),
		limiter.Middleware(func(c *gin.Context) {
			logger.WarnContext(c.Request.Context(), "Rate limit exceeded",
				log.FieldClientIP, c.ClientIP(),
				log.FieldMethod, c.Request.Method,
				log.FieldPath, c.Request.URL.Path)
			TooManyRequestsError().Write(c)
		}),
	)

	h := &handlers{svc: svc, reconciler: reconciler, store: store}

	api := r.Group("/api")
	api.GET("/health", h.health)

	txs := api.Group("/transactions", requireUser(tokens))
	txs.POST("", h.create)
	txs.GET("", h.list)
	txs.GET("/summary", h.summary)
	txs.GET("/history", h.history)
	txs.POST("/transfer", h.transfer)
	txs.GET("/transfers/reconcile", h.reconcile)
	txs.GET("/:id", h.get)
	txs.PUT("/:id", h.update)
	txs.DELETE("/:id", h.delete)

	return &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		limiter:  limiter,
		detector: detector,
	}
}

func corsConfig(clientURL string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", trace.HeaderRequestID},
		ExposeHeaders:    []string{trace.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if clientURL = strings.TrimRight(strings.TrimSpace(clientURL), "/"); clientURL != "" {
		cfg.AllowOrigins = []string{clientURL}
	} else {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

// requireUser authenticates the request and stores the user id for handlers.
func requireUser(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			if cookie, cerr := c.Cookie(tokenCookie); cerr == nil && cookie != "" {
				token, err = cookie, nil
			}
		}
		if err == nil {
			var user string
			if user, err = tokens.Verify(token); err == nil {
				c.Set(userIDKey, user)
				ctx := c.Request.Context()
				ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user))
				c.Request = c.Request.WithContext(ctx)
				c.Next()
				return
			}
		}

		log.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Authentication failed",
			log.FieldClientIP, c.ClientIP(),
			log.FieldErrorType, log.ErrorTypeAuth,
			log.FieldError, err.Error())
		UnauthorizedError().Write(c)
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Shutdown stops the rate limiter and gracefully shuts the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// SuspiciousRequests returns how many requests the detector flagged.
func (s *Server) SuspiciousRequests() int64 {
	return s.detector.GetMetrics().SuspiciousRequests
}
