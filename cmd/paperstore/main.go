// Package main wires together the paper library service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/wgilpin/paperstore/internal/api"
	"github.com/wgilpin/paperstore/internal/arxiv"
	"github.com/wgilpin/paperstore/internal/clock/system"
	"github.com/wgilpin/paperstore/internal/config"
	"github.com/wgilpin/paperstore/internal/enrich"
	"github.com/wgilpin/paperstore/internal/extract"
	"github.com/wgilpin/paperstore/internal/id/uuid"
	"github.com/wgilpin/paperstore/internal/ingest"
	"github.com/wgilpin/paperstore/internal/logging"
	"github.com/wgilpin/paperstore/internal/paper"
	"github.com/wgilpin/paperstore/internal/pdfdoc"
	pubsubpublisher "github.com/wgilpin/paperstore/internal/publisher/pubsub"
	"github.com/wgilpin/paperstore/internal/storage/gcs"
	"github.com/wgilpin/paperstore/internal/storage/local"
	blobmemory "github.com/wgilpin/paperstore/internal/storage/memory"
	storememory "github.com/wgilpin/paperstore/internal/store/memory"
	storepostgres "github.com/wgilpin/paperstore/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	if publisher != nil {
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				logger.Warn("publisher close failed", zap.Error(closeErr))
			}
		}()
	}

	extractor, err := buildExtractor(ctx, cfg)
	if err != nil {
		logger.Fatal("extractor init failed", zap.Error(err))
	}

	source := arxiv.NewClient(arxiv.Config{
		Endpoint: cfg.Arxiv.Endpoint,
		Timeout:  time.Duration(cfg.Arxiv.TimeoutSeconds) * time.Second,
	})
	docs := pdfdoc.NewFetcher(pdfdoc.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxBodySize: cfg.Fetch.MaxBodyMB * 1024 * 1024,
	})

	ingestor := ingest.New(
		store,
		blobs,
		source,
		docs,
		publisher,
		uuid.New(),
		system.New(),
		ingest.Config{Topic: cfg.PubSub.TopicName},
		logger.Named("ingest"),
	)
	controller := enrich.NewController(store, blobs, extractor, logger.Named("enrich"))

	apiServer := api.NewServer(store, blobs, ingestor, controller, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	controller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config) (paper.Store, error) {
	switch cfg.DB.Backend {
	case "postgres":
		store, err := storepostgres.New(ctx, storepostgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "memory":
		return storememory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown db backend %q", cfg.DB.Backend)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (paper.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		})
	case "local":
		return local.New(local.Config{
			BaseDir: cfg.Storage.LocalDir,
			Prefix:  cfg.Storage.Prefix,
		})
	case "memory":
		return blobmemory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (paper.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return nil, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return pubsubpublisher.New(client)
}

// buildExtractor returns the Gemini-backed extractor, or a stub that
// always declines when the extractor is disabled.
func buildExtractor(ctx context.Context, cfg config.Config) (paper.MetadataExtractor, error) {
	if !cfg.Extractor.Enabled {
		return disabledExtractor{}, nil
	}
	return extract.NewGemini(ctx, cfg.Extractor.APIKey, cfg.Extractor.Model)
}

type disabledExtractor struct{}

func (disabledExtractor) Extract(context.Context, string, paper.Metadata) (paper.Metadata, error) {
	return paper.Metadata{}, &paper.ExtractionError{Err: errors.New("secondary extractor disabled")}
}
