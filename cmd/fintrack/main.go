package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// File stores
	credentials := store.NewCredentialStore(cfg.CredentialsPath)
	if err := credentials.Ensure(); err != nil {
		logger.Error("Failed to initialize credential store", "error", err, "path", cfg.CredentialsPath)
		os.Exit(1)
	}
	transactions := store.NewTransactionStore(cfg.DataDir)

	// Record cache and session manager, both swept by one cleanup loop
	records := cache.NewLRUCache[map[string]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	sessions := session.NewManager(cfg.SessionTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(records)
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	// Audit publishing is best effort: without a broker the app still
	// serves requests, it just leaves no trail.
	var publisher services.AuditPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Audit publishing disabled, broker unavailable", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("Audit publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("Audit publishing disabled, no AMQP_URL provided")
	}

	tracker := services.NewTrackerService(credentials, transactions, records, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, sessions)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
