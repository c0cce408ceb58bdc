package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/espen/sup-gateway/internal/config"
	"github.com/espen/sup-gateway/internal/gateway"
	"github.com/espen/sup-gateway/internal/secretstore"
	"github.com/espen/sup-gateway/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	configureLogger(cfg.LogLevel)
	slog.Info("starting sup-gatewayd", "version", version.String())
	cfg.Log()

	store, stop, err := buildSecretStore(cfg.SecretStore)
	if err != nil {
		slog.Error("failed to initialize secret store", "error", err)
		os.Exit(1)
	}
	defer stop()

	handler := gateway.New(store, cfg.EnforceExpiry)
	server := gateway.NewServer(gateway.Config{
		Address:        cfg.Server.Address,
		TrustedProxies: cfg.Server.TrustedProxies,
		MetricsUser:    cfg.MetricsAuth.Username,
		MetricsPass:    cfg.MetricsAuth.Password,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, handler)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received shutdown signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// buildSecretStore constructs the configured secretstore.Store and returns
// a cleanup func that stops any background reload schedule.
func buildSecretStore(cfg config.SecretStoreConfig) (secretstore.Store, func(), error) {
	switch cfg.Kind {
	case config.SecretStoreEnv:
		store, err := secretstore.NewEnvStore(cfg.AccessKeyEnv, cfg.SecretKeyEnv)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil

	case config.SecretStoreFile:
		store, err := secretstore.NewFileStore(cfg.FilePath, slog.Default())
		if err != nil {
			return nil, func() {}, err
		}
		if cfg.ReloadSchedule != "" {
			if err := store.StartReloading(cfg.ReloadSchedule); err != nil {
				return nil, func() {}, err
			}
		}
		return store, store.StopReloading, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown secret store kind %q", cfg.Kind)
	}
}

func configureLogger(level string) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
