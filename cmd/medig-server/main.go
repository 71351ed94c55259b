package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"medig/internal/config"
	"medig/internal/document"
	httpapi "medig/internal/http"
	"medig/internal/logger"
	"medig/internal/repository"
	"medig/internal/service"
	"medig/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "medig-server")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// Redis 不可用时退回进程内 KV（会话、主题随进程丢失）
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Store.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, falling back to memory store", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient, "medig:")
		}
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}

	proxy := service.NewProxyClient(cfg.AI.ProxyURL, cfg.AI.Timeout, cfg.AI.RetryCount, log)
	forms := repository.NewMemoryFormsRepo()
	assembler := document.NewAssembler(time.Now)
	exporter := document.NewExporter(assembler, document.NewRenderer(log, cfg.Export.ImageMaxWidth))

	router := httpapi.NewRouter(log)
	router.RegisterFormRoutes(httpapi.NewFormsHandler(service.NewFormService(forms, assembler, exporter, log), log))
	router.RegisterAIRoutes(httpapi.NewAIHandler(
		service.NewNarrativeService(forms, proxy, log),
		service.NewChatService(forms, proxy, log),
		log,
	))
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(
		service.NewAuthService(kv, proxy, log),
		service.NewPreferenceService(kv, log),
		log,
	))
	router.RegisterHealth()

	srv := service.NewServer(cfg, router.Handler(cfg.HTTP.CORSOrigins), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
