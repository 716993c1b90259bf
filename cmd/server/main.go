package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brojonat/clawsignal/service/config"
	"github.com/brojonat/clawsignal/service/dexscreener"
	"github.com/brojonat/clawsignal/service/metrics"
	"github.com/brojonat/clawsignal/service/nats"
	"github.com/brojonat/clawsignal/service/profile"
	"github.com/brojonat/clawsignal/service/scan"
	"github.com/brojonat/clawsignal/service/server"
	"github.com/brojonat/clawsignal/service/solana"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	// Load and validate configuration from environment
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	if err := cfg.APIKeyError(); err != nil {
		logger.Warn("scans will fail until the API key is set", "error", err)
	}

	m := metrics.NewMetrics(nil)

	rules := profile.DefaultRules()
	if cfg.ScoringRulesFile != "" {
		loaded, err := profile.LoadRules(cfg.ScoringRulesFile)
		if err != nil {
			logger.Error("failed to load scoring rules", "path", cfg.ScoringRulesFile, "error", err)
			os.Exit(1)
		}
		rules = loaded
		logger.Info("loaded scoring rules", "path", cfg.ScoringRulesFile)
	}

	helius := solana.NewClient(solana.ClientOptions{
		BaseURL: cfg.HeliusBaseURL,
		APIKey:  cfg.HeliusAPIKey,
		Limit:   cfg.TxLimit,
		Timeout: cfg.FetchTimeout,
	}, m, logger)

	market := dexscreener.NewClient(cfg.DexScreenerBaseURL, cfg.EnrichTimeout, nil, m, logger)

	// NATS is optional; scans still succeed without it.
	var publisher nats.Publisher
	if cfg.NATSURL != "" {
		p, err := nats.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Warn("scan events disabled", "error", err)
		} else {
			publisher = p
			defer p.Close()
		}
	}

	scanner := scan.NewScanner(helius, market, profile.NewComputer(rules), publisher, scan.Options{
		MaxTokens:     cfg.EnrichMaxTokens,
		Concurrency:   cfg.EnrichConcurrency,
		EnrichTimeout: cfg.EnrichTimeout,
	}, m, logger)

	httpServer := server.New(cfg.ServerAddr, cfg, scanner, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"helius_base_url", cfg.HeliusBaseURL,
		"dexscreener_base_url", cfg.DexScreenerBaseURL,
		"tx_limit", cfg.TxLimit,
		"nats_enabled", publisher != nil,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
