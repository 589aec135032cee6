package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mandalnilabja/chatrelay/internal/app"
	"github.com/mandalnilabja/chatrelay/internal/config"
	"github.com/mandalnilabja/chatrelay/internal/relay"
	"github.com/mandalnilabja/chatrelay/internal/storage"
	"github.com/mandalnilabja/chatrelay/internal/tokenizer"
	"github.com/mandalnilabja/chatrelay/internal/transport/http/handler"
	"github.com/mandalnilabja/chatrelay/internal/upstream/deepseek"
	"github.com/mandalnilabja/chatrelay/internal/version"
)

// estimateCacheEntries bounds the prompt estimate cache.
const estimateCacheEntries = 10_000

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		logger.Warn(config.APIKeyEnv + " is not set; relay requests will fail with 500")
	} else {
		logger.Info("upstream credential loaded", "fingerprint", cfg.CredentialFingerprint())
	}

	var recorder storage.Recorder
	if cfg.HistoryDB != "" {
		store, err := openHistory(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		logger.Info("request history enabled", "path", cfg.HistoryDB)
	}

	estimator, err := tokenizer.NewEstimator(tokenizer.New(), estimateCacheEntries)
	if err != nil {
		return err
	}
	defer estimator.Close()

	relayHandler := relay.New(relay.Options{
		APIKey: cfg.APIKey,
		Defaults: relay.Defaults{
			Model:       cfg.DefaultModel,
			Temperature: cfg.DefaultTemperature,
		},
		Upstream:       deepseek.NewClient(cfg.UpstreamURL, deepseek.WithMaxResponseBytes(cfg.MaxResponseBytes)),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		AllowedMethods: app.AllowedMethods(cfg.EnableCORS),
		Logger:         logger,
		Recorder:       recorder,
		Estimator:      estimator,
	})

	router := app.NewRouter(handler.NewRepo(relayHandler, cfg.APIKey != ""), &app.RouterOptions{
		EnableCORS: cfg.EnableCORS,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting chatrelay",
		"version", version.Version,
		"addr", cfg.ServerPort,
		"upstream", cfg.UpstreamURL,
		"cors", cfg.EnableCORS,
	)
	err = app.NewServer(cfg, router, logger).Run(ctx)

	// History writes still in flight must land before the deferred closes run.
	relayHandler.Wait()
	return err
}

// loadConfig applies .env, the config file, the environment and flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		if err := config.EnsureConfigFile(); err != nil {
			return nil, fmt.Errorf("creating config file: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if port, _ := cmd.Root().PersistentFlags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}
	return cfg, nil
}

func openHistory(path string) (storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}
