// Package httpapi exposes the authentication endpoints over HTTP JSON and
// guards protected pages.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Options wires the HTTP server to its collaborators.
type Options struct {
	Address            string
	Sessions           SessionService
	Resets             ResetService
	Gate               Gate
	Cookies            CookieOptions
	ExposeResetToken   bool
	LoginLimiter       ratelimit.Limiter
	ResetLimiter       ratelimit.Limiter
	CORSAllowedOrigins []string
	AssetsDir          string
	Logger             logging.Logger
}

type HTTPServer struct {
	address     string
	engine      *gin.Engine
	sessions    SessionService
	resets      ResetService
	cookies     CookieOptions
	exposeToken bool
	logger      logging.Logger
}

func NewHTTPServer(o Options) *HTTPServer {
	s := &HTTPServer{
		address:     o.Address,
		sessions:    o.Sessions,
		resets:      o.Resets,
		cookies:     o.Cookies,
		exposeToken: o.ExposeResetToken,
		logger:      o.Logger.With("module", "http_server"),
	}

	loginLimiter, resetLimiter := o.LoginLimiter, o.ResetLimiter
	if loginLimiter == nil {
		loginLimiter = ratelimit.Unlimited{}
	}
	if resetLimiter == nil {
		resetLimiter = ratelimit.Unlimited{}
	}

	engine := gin.New()
	// the gate runs before everything else, static assets included
	engine.Use(o.Gate.Middleware(), s.requestLogger(), gin.Recovery())

	if len(o.CORSAllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = o.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
		corsConfig.ExposeHeaders = []string{"X-Request-ID"}
		engine.Use(cors.New(corsConfig))
	}

	engine.GET("/healthz", s.health)

	authRoutes := engine.Group("/auth")
	{
		authRoutes.POST("/login", s.rateLimit(loginLimiter, "login"), s.login)
		authRoutes.POST("/logout", s.logout)
		authRoutes.GET("/session", s.session)
		authRoutes.POST("/reset-request", s.rateLimit(resetLimiter, "reset"), s.resetRequest)
		authRoutes.POST("/reset", s.reset)
		authRoutes.POST("/change-password", s.requireSession(), s.changePassword)
	}

	if o.AssetsDir != "" {
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(o.AssetsDir))))
	}

	s.engine = engine
	return s
}

// Handler exposes the engine, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
