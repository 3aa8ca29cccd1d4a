// Package main wires together the gazette ETL service binary.
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

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	gpubsub "cloud.google.com/go/pubsub"

	"github.com/sheriffdata/gazette-etl/internal/api"
	"github.com/sheriffdata/gazette-etl/internal/auction"
	"github.com/sheriffdata/gazette-etl/internal/clock/system"
	"github.com/sheriffdata/gazette-etl/internal/config"
	"github.com/sheriffdata/gazette-etl/internal/extractor/geocode"
	"github.com/sheriffdata/gazette-etl/internal/extractor/openai"
	"github.com/sheriffdata/gazette-etl/internal/gazette"
	"github.com/sheriffdata/gazette-etl/internal/id/uuid"
	"github.com/sheriffdata/gazette-etl/internal/logging"
	"github.com/sheriffdata/gazette-etl/internal/pdf"
	"github.com/sheriffdata/gazette-etl/internal/pipeline"
	memorypublisher "github.com/sheriffdata/gazette-etl/internal/publisher/memory"
	pubsubpublisher "github.com/sheriffdata/gazette-etl/internal/publisher/pubsub"
	queuememory "github.com/sheriffdata/gazette-etl/internal/queue/memory"
	"github.com/sheriffdata/gazette-etl/internal/runner"
	memorysink "github.com/sheriffdata/gazette-etl/internal/sink/memory"
	postgressink "github.com/sheriffdata/gazette-etl/internal/sink/postgres"
	sqlitesink "github.com/sheriffdata/gazette-etl/internal/sink/sqlite"
	gcssource "github.com/sheriffdata/gazette-etl/internal/source/gcs"
	memorysource "github.com/sheriffdata/gazette-etl/internal/source/memory"
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

	source, err := buildSource(ctx, cfg)
	if err != nil {
		logger.Fatal("document source init failed", zap.Error(err))
	}
	sink, closeSink, err := buildSink(ctx, cfg)
	if err != nil {
		logger.Fatal("record sink init failed", zap.Error(err))
	}
	defer closeSink()

	extractor, err := buildExtractor(cfg, logger)
	if err != nil {
		logger.Fatal("extractor init failed", zap.Error(err))
	}

	normalizer, err := gazette.NewNormalizer(gazette.NormalizerConfig{
		StopMarker: cfg.Gazette.StopMarker,
	})
	if err != nil {
		logger.Fatal("normalizer init failed", zap.Error(err))
	}
	segmenter, err := gazette.NewSegmenter(cfg.Gazette.MarkerPattern)
	if err != nil {
		logger.Fatal("segmenter init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	dispatcher := pipeline.NewDispatcher(extractor, sink, pipeline.DispatcherConfig{
		MaxConcurrency: cfg.Pipeline.Concurrency,
		BatchTimeout:   cfg.BatchTimeout(),
		TokenCeiling:   cfg.Pipeline.TokenCeiling,
	}, logger.Named("dispatcher"))

	clk := system.New()
	coordinator := pipeline.NewCoordinator(
		source,
		pdf.NewExtractor(),
		sink,
		normalizer,
		segmenter,
		dispatcher,
		publisher,
		clk,
		pipeline.CoordinatorConfig{
			BatchSize:           cfg.Pipeline.BatchSize,
			SequentialThreshold: cfg.Pipeline.SequentialThreshold,
			SkipPages:           cfg.Gazette.SkipPages,
			CompletionTopic:     cfg.PubSub.TopicName,
		},
		logger.Named("coordinator"),
	)

	queue := queuememory.NewQueue(cfg.Pipeline.QueueDepth)
	store := runner.NewRunStore()
	for i := 0; i < cfg.Pipeline.Runners; i++ {
		r := runner.New(queue, store, coordinator, logger.Named("runner").With(zap.Int("index", i)))
		go r.Run(ctx)
	}

	apiServer := api.NewServer(queue, store, source, uuid.New(), clk, cfg, logger.Named("api"))

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

func buildSource(ctx context.Context, cfg config.Config) (auction.DocumentSource, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcssource.New(client, gcssource.Config{
			Bucket:        cfg.Storage.GCSBucket,
			IntakePrefix:  cfg.Storage.IntakePrefix,
			ArchivePrefix: cfg.Storage.ArchivePrefix,
		})
	case "memory":
		return memorysource.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildSink(ctx context.Context, cfg config.Config) (auction.RecordSink, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		sink, err := postgressink.New(ctx, postgressink.Config{
			DSN:   cfg.Database.DSN,
			Table: cfg.Database.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case "sqlite":
		sink, err := sqlitesink.New(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {
			if err := sink.Close(); err != nil {
				zap.L().Warn("close sqlite sink failed", zap.Error(err))
			}
		}, nil
	case "memory":
		return memorysink.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildExtractor(cfg config.Config, logger *zap.Logger) (auction.RecordExtractor, error) {
	base, err := openai.New(openai.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		APIKey:      cfg.OpenAI.APIKey,
		Timeout:     cfg.OpenAITimeout(),
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.Geocode.Enabled {
		return base, nil
	}
	return geocode.New(base, geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		APIKey:  cfg.Geocode.APIKey,
		Timeout: cfg.GeocodeTimeout(),
	}, logger.Named("geocode"))
}

func buildPublisher(ctx context.Context, cfg config.Config) (auction.Publisher, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return pubsubpublisher.New(client.Topic(cfg.PubSub.TopicName)), nil
}
