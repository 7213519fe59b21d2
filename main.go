package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"contexter/internal/api"
	"contexter/internal/config"
	"contexter/internal/logging"
	"contexter/internal/middleware"
	"contexter/internal/safe"
	"contexter/internal/storage"
)

func main() {
	configPath := pflag.String("config", "", "configuration file (YAML or JSON)")
	pflag.String("host", "localhost", "listen host")
	pflag.Int("port", 8080, "listen port")
	pflag.String("db", ".contexter/db", "metadata database directory")
	pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	containers, err := safe.New(db, safe.Options{
		Root:      cfg.Safe.Root,
		CacheSize: cfg.Safe.CacheSize,
		Compression: safe.CompressionOptions{
			MinSize:            cfg.Safe.CompressMinSize,
			Level:              cfg.Safe.CompressLevel,
			StreamingThreshold: safe.DefaultCompressionOptions().StreamingThreshold,
		},
	}, logger.Logger)
	if err != nil {
		logger.Fatal("failed to initialize container store", zap.Error(err))
	}

	mux := http.NewServeMux()
	api.NewHandler(containers, logger).Register(mux)

	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
