package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pavel19a/serverless-lab-render/internal/cache"
	"github.com/pavel19a/serverless-lab-render/internal/config"
	"github.com/pavel19a/serverless-lab-render/internal/handler"
	"github.com/pavel19a/serverless-lab-render/internal/repository"
	"github.com/pavel19a/serverless-lab-render/internal/service"
	pkgconfig "github.com/pavel19a/serverless-lab-render/pkg/config"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
	"github.com/pavel19a/serverless-lab-render/pkg/pubsub"
)

func main() {
	cfg, v, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log.Init(cfg.Log)
	l := log.L()

	if pkgconfig.Watch(v, func(v *viper.Viper) {
		log.SetLevel(v.GetString("log.level"))
		l.Info().Str("level", v.GetString("log.level")).Msg("log level reloaded")
	}) {
		l.Info().Str("file", v.ConfigFileUsed()).Msg("watching config file")
	}

	connector := database.NewPerCallConnector(cfg.Database)
	bootSchema(context.Background(), l, connector, cfg.Database)

	msgCache := newCache(cfg)
	defer msgCache.Close()

	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		l.Warn().Err(err).Str("driver", cfg.Events.Driver).Msg("events disabled")
		publisher = pubsub.NopPublisher{}
	}
	defer publisher.Close()

	repo := repository.NewGormMessageRepository(connector, repository.ParseOrder(cfg.Messages.OrderBy))
	messageService := service.NewMessageService(repo, connector, msgCache, publisher, service.Options{
		Strict:   cfg.Validation.Strict,
		CacheTTL: cfg.Cache.TTL,
	})
	httpHandler := handler.NewHTTPHandler(messageService, handler.Options{
		Strict: cfg.Validation.Strict,
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(log.GinMiddleware(l))
	router.Use(log.GinRecovery())

	httpHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		l.Info().
			Str("addr", srv.Addr).
			Str("order_by", cfg.Messages.OrderBy).
			Bool("strict", cfg.Validation.Strict).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("server exited")
}

// bootSchema creates the messages table. Failures leave the process running
// in degraded mode: database endpoints answer 500 until the database is back.
func bootSchema(ctx context.Context, l zerolog.Logger, connector database.Connector, cfg database.Config) {
	if !connector.Configured() {
		l.Warn().Msg("DATABASE_URL is not set; running without a database")
		return
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		l.Error().Err(err).Str(log.FieldStrategy, cfg.Strategy).Msg("invalid database url; running degraded")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := repository.EnsureSchema(ctx, connector); err != nil {
		l.Error().Err(err).
			Str(log.FieldDriver, resolved.Driver).
			Str(log.FieldStrategy, resolved.Strategy).
			Msg("schema initialisation failed; running degraded")
		return
	}

	l.Info().
		Str(log.FieldDriver, resolved.Driver).
		Str(log.FieldStrategy, resolved.Strategy).
		Msg("database schema ready")
}

func newCache(cfg *config.Config) cache.MessageCache {
	l := log.L()

	if cfg.Redis.Address == "" {
		return cache.NoopCache{}
	}

	c, err := cache.NewRedisMessageCache(cfg.Redis, cfg.Cache.Prefix)
	if err != nil {
		l.Warn().Err(err).Msg("redis cache unavailable; serving without cache")
		return cache.NoopCache{}
	}
	return c
}
