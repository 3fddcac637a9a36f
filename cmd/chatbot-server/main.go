// cmd/chatbot-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"riskbot-engine/internal/capabilities"
	"riskbot-engine/internal/common/config"
	"riskbot-engine/internal/common/database"
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/common/observability"
	"riskbot-engine/internal/dialogue/dispatch"
	"riskbot-engine/internal/dialogue/policy"
	"riskbot-engine/internal/dialogue/session"
	"riskbot-engine/internal/dialogue/templates"
	"riskbot-engine/internal/nlu"
	"riskbot-engine/internal/transport/rest"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chatbot server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	idleTimeout := config.GetDuration(cfg.Dialogue.SessionIdleTimeout)

	// --- Init snapshot store (Redis when configured, memory otherwise) ---
	var snapshots session.SnapshotStore
	if cfg.Database.Redis.Address != "" {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")

		// snapshots outlive the in-memory session by one extra idle window
		snapshots = session.NewRedisSnapshotStore(redisClient, 2*idleTimeout)
	} else {
		zapLog.Info("No Redis configured, keeping slot snapshots in memory")
		snapshots = session.NewMemorySnapshotStore(2 * idleTimeout)
	}

	// --- Assemble the dialogue pipeline ---
	backendClient := capabilities.NewClient(&capabilities.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    config.GetDuration(cfg.Backend.Timeout),
		MaxRetries: cfg.Backend.MaxRetries,
	}, log)

	registry := templates.NewRegistry(
		templates.SelectionPolicy(cfg.Dialogue.TemplateSelection),
		time.Now().UnixNano(),
	)

	engine := policy.NewEngine(&policy.Config{
		MinIntentConfidence: cfg.Dialogue.MinIntentConfidence,
		MaxPendingTurns:     cfg.Dialogue.MaxPendingTurns,
	}, log)

	dispatcher := dispatch.NewDispatcher(registry, backendClient, log)

	manager := session.NewManager(
		nlu.NewRuleClassifier(),
		nlu.NewRuleExtractor(),
		engine,
		dispatcher,
		snapshots,
		obs,
		session.Config{
			IdleTimeout:    idleTimeout,
			SweepInterval:  config.GetDuration(cfg.Dialogue.SweepInterval),
			CarryOverSlots: cfg.Dialogue.CarryOverSlots,
		},
		log,
	)
	defer manager.Close()

	// --- HTTP server ---
	server := rest.NewServer(manager, log)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Chatbot server stopped")
}
