// Package server wires configuration, storage, services and transports
// together and runs them until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/auth"
	"github.com/dmitrijs2005/eduportal/internal/server/config"
	"github.com/dmitrijs2005/eduportal/internal/server/httpapi"
	"github.com/dmitrijs2005/eduportal/internal/server/notify"
	"github.com/dmitrijs2005/eduportal/internal/server/ratelimit"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
	"github.com/dmitrijs2005/eduportal/internal/server/worker"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	redis       *redis.Client
	asynqClient *asynq.Client
	worker      *worker.Worker
	http        *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	if c.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	repos, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	notifier, err := app.initNotifier()
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	loginLimiter, resetLimiter, err := app.initLimiters()
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	var codec auth.Codec = auth.PlainCodec{}
	if c.SessionSigning {
		codec = auth.NewJWTCodec([]byte(c.SessionSecret), c.SessionTTL)
	}
	hasher := cryptox.NewHasher(c.BcryptCost)
	policy := services.PasswordPolicy{MinLength: c.MinPasswordLength}

	app.http = httpapi.NewHTTPServer(httpapi.Options{
		Address:  c.HTTPAddr,
		Sessions: services.NewSessionService(repos, hasher, codec, logger).WithPasswordPolicy(policy),
		Resets:   services.NewPasswordResetService(repos, hasher, notifier, c.ResetTokenTTL, logger).WithPasswordPolicy(policy),
		Gate: httpapi.Gate{
			ProtectedPrefixes: c.ProtectedPrefixes,
			LoginPath:         c.LoginPath,
			LandingPath:       c.LandingPath,
		},
		Cookies:            httpapi.CookieOptions{Secure: c.CookieSecure, MaxAge: c.SessionTTL},
		ExposeResetToken:   c.ExposeResetToken,
		LoginLimiter:       loginLimiter,
		ResetLimiter:       resetLimiter,
		CORSAllowedOrigins: c.CORSAllowedOrigins,
		AssetsDir:          c.AssetsDir,
		Logger:             logger,
	})

	return app, nil
}

// initNotifier picks how reset tokens reach their owner. The queue notifier
// also starts the in-process mail worker.
func (app *App) initNotifier() (notify.Notifier, error) {
	if app.config.Notifier != config.NotifierQueue {
		return notify.NewLogNotifier(app.logger), nil
	}

	opt, err := asynq.ParseRedisURI(app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	app.asynqClient = asynq.NewClient(opt)

	mailer := worker.NewSMTPMailer(app.config.SMTPAddr, app.config.SMTPFrom, app.config.SMTPUsername, app.config.SMTPPassword)
	app.worker = worker.NewWorker(opt, mailer, app.config.ResetURLBase, app.logger)

	return notify.NewQueueNotifier(app.asynqClient, app.logger), nil
}

func (app *App) initLimiters() (login, reset ratelimit.Limiter, err error) {
	c := app.config
	if c.RateLimitRequests == 0 {
		return ratelimit.Unlimited{}, ratelimit.Unlimited{}, nil
	}

	if c.RateLimitBackend == config.RateLimitRedis {
		opt, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		app.redis = redis.NewClient(opt)
		return ratelimit.NewRedisLimiter(app.redis, ratelimit.KeyPrefix, c.RateLimitRequests, c.RateLimitWindow),
			ratelimit.NewRedisLimiter(app.redis, ratelimit.KeyPrefix, c.RateLimitRequests, c.RateLimitWindow),
			nil
	}

	return ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow),
		ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow),
		nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver, "notifier", app.config.Notifier)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	if app.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.worker.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Wait()
	app.close(context.Background())
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.asynqClient != nil {
		if err := app.asynqClient.Close(); err != nil {
			app.logger.Error(ctx, "asynq client close error", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.repos.Close(ctx); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}
}
