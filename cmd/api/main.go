package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codegate/internal/config"
	"codegate/internal/handler"
	"codegate/internal/router"
	"codegate/internal/service"
	"codegate/internal/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting codegate download server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The S3 client is always needed: download URLs for the protected file
	// are signed against the bucket regardless of where the codebank lives.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	s3Store := storage.NewS3Store(s3Client, cfg.Storage.Bucket, cfg.Codebank.Key, logger)

	// Pick the codebank record store
	recordStore, cleanup, err := newRecordStore(ctx, cfg, s3Store, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize codebank store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	logger.Info().
		Str("backend", cfg.Codebank.Backend).
		Str("codebank_key", cfg.Codebank.Key).
		Str("bucket", cfg.Storage.Bucket).
		Str("file_key", cfg.Storage.FileKey).
		Msg("codebank store initialized")

	// Initialize the code service and HTTP surface
	urlTTL := time.Duration(cfg.Storage.URLTTLSeconds) * time.Second
	codeService := service.NewCodeService(recordStore, s3Store, cfg.Storage.FileKey, urlTTL, logger)
	codeHandler := handler.NewCodeHandler(codeService, logger)
	mux := router.New(codeHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newRecordStore builds the configured codebank backend. The returned cleanup
// releases backend resources and may be nil.
func newRecordStore(ctx context.Context, cfg *config.Config, s3Store *storage.S3Store, logger zerolog.Logger) (storage.RecordStore, func(), error) {
	switch cfg.Codebank.Backend {
	case config.BackendS3:
		return s3Store, nil, nil

	case config.BackendPostgres:
		pool, err := storage.NewPool(ctx, cfg.Codebank.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool, logger)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Codebank.RedisAddr})
		store := storage.NewRedisStore(client, cfg.Codebank.Key, logger)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return store, func() { client.Close() }, nil

	case config.BackendMemory:
		logger.Warn().Msg("using in-memory codebank store, codes will not survive a restart")
		return storage.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown codebank backend: %s", cfg.Codebank.Backend)
	}
}
