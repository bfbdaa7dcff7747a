package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/api"
	"prism-board/board"
	"prism-board/config"
	"prism-board/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ProvisionStorage {
		if err := storage.Provision(ctx, cfg.StorageConnectionString, []string{cfg.TasksTable}, []string{cfg.CommandQueue}); err != nil {
			log.Fatalf("provision storage: %v", err)
		}
	}

	var rc *redis.Client
	if cfg.HasRedis() {
		rc = redis.NewClient(config.ParseRedisOptions(cfg.RedisConnectionString))
		defer rc.Close()
	}

	var loader board.Loader
	var publisher api.Publisher = storage.LogPublisher{Log: logger}
	if cfg.HasStorage() {
		store, err := storage.New(cfg.StorageConnectionString, cfg.TasksTable, cfg.CommandQueue)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		cache := storage.NewCache(store, rc, cfg.TasksCacheTTL)
		loader = cache
		publisher = cache
	} else {
		log.Warn("no storage configured; boards start empty and intents are only logged")
	}

	dispatcher := api.NewIntentDispatcher(publisher, api.DispatcherConfig{
		Workers:        cfg.IntentWorkers,
		Buffer:         cfg.IntentBuffer,
		Timeout:        cfg.IntentTimeout,
		HandoffTimeout: cfg.IntentHandoffTimeout,
	}, logger)
	dispatcher.Start()

	var deduper api.Deduper
	if rc != nil {
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	}

	registry := board.NewRegistry(cfg.BoardColumns(), loader, dispatcher, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	api.Register(e, registry, deduper, logger)

	go func() {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	log.WithFields(log.Fields{"addr": cfg.Addr(), "columns": cfg.BoardColumns()}).Info("board service started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Errorf("dispatcher shutdown: %v", err)
	}
	log.Info("board service stopped")
}
