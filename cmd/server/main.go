// @title                       Site Backend API
// @version                     1.0
// @description                 Admin authentication and authorization for the site backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/lumiereluxe/site-backend/docs"
	"github.com/lumiereluxe/site-backend/internal/api"
	"github.com/lumiereluxe/site-backend/internal/core/service"
	mongostore "github.com/lumiereluxe/site-backend/internal/infrastructure/db/mongo"
	redisstore "github.com/lumiereluxe/site-backend/internal/infrastructure/db/redis"
	"github.com/lumiereluxe/site-backend/internal/infrastructure/mail"
	"github.com/lumiereluxe/site-backend/internal/infrastructure/queue"
	"github.com/lumiereluxe/site-backend/internal/pkg/config"
	"github.com/lumiereluxe/site-backend/internal/pkg/password"
	"github.com/lumiereluxe/site-backend/internal/pkg/token"
	"github.com/lumiereluxe/site-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "site-backend",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		Timeout:     cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongostore.Disconnect(context.Background(), mongoClient, cfg.Mongo.Timeout); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	admins := mongostore.NewAdminRepository(db)
	if err := admins.EnsureIndexes(ctx); err != nil {
		return err
	}

	// --- Reset mail outbox ---
	mailer := mail.New(mail.Config{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		User:        cfg.Mail.User,
		Pass:        cfg.Mail.Pass,
		From:        cfg.Mail.From,
		Security:    cfg.Mail.Security,
		ResetTo:     cfg.Mail.ResetTo,
		FrontendURL: cfg.Mail.FrontendURL,
	}, logger.Component("mail"))
	outbox := queue.NewMailDispatcher(cfg.Mail.Workers, mailer, logger.Component("outbox"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	outbox.Start(workerCtx)
	defer func() {
		stopWorkers()
		outbox.Wait()
	}()

	// --- Services ---
	hasher := password.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := token.New(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	authSvc := service.NewAuthService(admins, hasher, tokens, cfg.Auth.RegisterEmailDomain, logger.Component("auth"))
	resetSvc := service.NewPasswordResetService(admins, hasher, outbox, logger.Component("reset"))

	if cfg.Bootstrap.Password != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password, cfg.Bootstrap.Email)
		if err != nil {
			return err
		}
		if created {
			log.Warn().Str("username", cfg.Bootstrap.Username).Msg("bootstrap admin created; change its password")
		}
	}

	limiter := redisstore.NewAttemptLimiter(rdb, "ratelimit", cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)

	e := api.NewRouter(api.Deps{
		Admins:      admins,
		Tokens:      tokens,
		Auth:        authSvc,
		Resets:      resetSvc,
		Limiter:     limiter,
		DB:          db,
		Redis:       rdb,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		TrustProxy:  cfg.TrustProxy,
		Logger:      log,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
