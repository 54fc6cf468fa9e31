// @title        User Directory API
// @version      1.0
// @description  Directory of users with a consistent manager/subordinate hierarchy.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/user-directory/internal/api"
	"github.com/99minutos/user-directory/internal/api/handler"
	"github.com/99minutos/user-directory/internal/api/metrics"
	"github.com/99minutos/user-directory/internal/core/ports"
	"github.com/99minutos/user-directory/internal/core/service"
	"github.com/99minutos/user-directory/internal/infrastructure/codec"
	"github.com/99minutos/user-directory/internal/infrastructure/config"
	"github.com/99minutos/user-directory/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/user-directory/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/user-directory/internal/infrastructure/db/redis"
	"github.com/99minutos/user-directory/internal/infrastructure/security"
	"github.com/99minutos/user-directory/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "user-directory: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log, err := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "user-directory",
	})
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		return err
	}
	defer closeStore()

	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	issuer, err := security.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithMetrics(metrics.NewDirectory()),
		service.WithMaxAttempts(cfg.Store.CASMaxAttempts),
	}
	directory := service.NewDirectoryService(store, hasher, logger.Component(log, "directory"), opts...)
	auth := service.NewAuthService(store, hasher, issuer, logger.Component(log, "auth"), opts...)

	created, err := auth.Bootstrap(ctx, cfg.Bootstrap.AdminID, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("user_id", cfg.Bootstrap.AdminID).Msg("bootstrap admin ready")
	}

	e := api.NewRouter(api.Deps{
		Directory: directory,
		Auth:      auth,
		Health:    map[string]handler.Pinger{cfg.Store.Driver: store},
		Logger:    logger.Component(log, "http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.Info().Msg("server stopped gracefully")
		return nil
	})
	return g.Wait()
}

// openStore connects the configured record store driver. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.UserStore, func(), error) {
	c, err := codec.New(cfg.Store.Codec)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Store.Driver {
	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Store.Timeout,
			Attempts: cfg.Store.ConnectAttempts,
			Backoff:  cfg.Store.ConnectBackoff,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
		}
		return redisstore.NewUserStore(client, c, cfg.Redis.KeyPrefix, cfg.Store.Timeout), closeFn, nil

	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Store.Timeout,
			Attempts: cfg.Store.ConnectAttempts,
			Backoff:  cfg.Store.ConnectBackoff,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}
		store := mongostore.NewUserStore(db, cfg.Store.Timeout)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return store, closeFn, nil

	default:
		log.Warn().Str("codec", c.Name()).Msg("using the in-memory store, data is lost on restart")
		return memory.NewUserStore(c), func() {}, nil
	}
}
