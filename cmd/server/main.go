// cmd/server/main.go
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

	"opportunity-engine/internal/chat"
	"opportunity-engine/internal/common/aws"
	"opportunity-engine/internal/common/config"
	"opportunity-engine/internal/common/database"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/common/observability"
	"opportunity-engine/internal/genai"
	"opportunity-engine/internal/narrative"
	"opportunity-engine/internal/pipeline"
	"opportunity-engine/internal/server"
	"opportunity-engine/internal/store"
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
			delay *= 2
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

	zapLog.Info("Starting opportunity engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init text-generation client ---
	completer := genai.NewClient(&genai.Config{
		BaseURL:    cfg.GenAI.BaseURL,
		APIKey:     cfg.GenAI.APIKey,
		Timeout:    time.Duration(cfg.GenAI.Timeout) * time.Millisecond,
		MaxRetries: cfg.GenAI.MaxRetries,
	}, log)

	// --- Init AWS clients (optional) ---
	var (
		alerts pipeline.ChurnAlertPublisher
		mailer pipeline.PitchMailer
	)
	if cfg.AWS.Enabled {
		if cfg.AWS.ChurnTopicARN != "" {
			publisher, err := aws.NewChurnAlertPublisher(ctx, cfg.AWS.Region, cfg.AWS.ChurnTopicARN)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			alerts = publisher
		}
		if cfg.AWS.PitchSender != "" {
			pitchMailer, err := aws.NewPitchMailer(ctx, cfg.AWS.Region, cfg.AWS.PitchSender)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			mailer = pitchMailer
		}
		zapLog.Info("AWS clients initialized")
	}

	// --- Assemble the pipeline ---
	recordStore := store.New(&store.Config{
		LookupTimeout: time.Duration(cfg.Pipeline.LookupTimeout) * time.Millisecond,
	}, pg.GetDB(), log)

	generator := narrative.New(&narrative.Config{
		ExplainMaxTokens:    cfg.Narrative.ExplainMaxTokens,
		NextActionMaxTokens: cfg.Narrative.NextActionMaxTokens,
		PitchMaxTokens:      cfg.Narrative.PitchMaxTokens,
		Temperature:         cfg.Narrative.Temperature,
		CacheTTL:            time.Duration(cfg.Narrative.CacheTTL) * time.Second,
	}, completer, redis.GetClient(), log)

	pipe := pipeline.New(&pipeline.Config{
		Concurrency:         cfg.Pipeline.Concurrency,
		RequestTimeout:      time.Duration(cfg.Pipeline.RequestTimeout) * time.Millisecond,
		ChurnAlertThreshold: cfg.Pipeline.ChurnAlertThreshold,
	}, recordStore, generator, alerts, mailer, log)

	classifier, err := chat.NewClassifier(&chat.ClassifierConfig{
		MaxHistoryTurns: cfg.Chat.MaxHistoryTurns,
		MaxTokens:       cfg.Chat.ClassifyMaxTokens,
	}, completer, log)
	if err != nil {
		zapLog.Fatal("classifier init failed", zap.Error(err))
	}
	chatRouter := chat.NewRouter(classifier, pipe, log)

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.New(pipe, chatRouter, obs, log).Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownPeriod)*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown did not complete cleanly", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
