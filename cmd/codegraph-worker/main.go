package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/embedding"
	"github.com/codegraph-labs/codegraph/internal/jobqueue"
	"github.com/codegraph-labs/codegraph/internal/lockservice"
	"github.com/codegraph-labs/codegraph/internal/parser"
	"github.com/codegraph-labs/codegraph/internal/parser/pythonlang"
	"github.com/codegraph-labs/codegraph/internal/pipeline"
	"github.com/codegraph-labs/codegraph/internal/resolver"
	"github.com/codegraph-labs/codegraph/internal/store"
	"github.com/codegraph-labs/codegraph/internal/store/postgres"
	vk "github.com/codegraph-labs/codegraph/internal/store/valkey"
	"github.com/codegraph-labs/codegraph/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	_ = godotenv.Load(".env") // ignore error if .env missing

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	s := store.New(pool)

	vkClient, err := vk.NewClient(cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	embedder, err := embedding.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to init embedder", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("embeddings enabled", slog.String("model", embedder.ModelID()))

	vectors := vectorstore.New(pool, embedder)
	locks := lockservice.New(vkClient)

	registry := parser.NewRegistry()
	registry.Register(".py", pythonlang.New())

	resolverEngine := resolver.New(s.Queries)
	chunkerEngine := chunker.New(cfg.Indexing)

	indexPipeline := pipeline.New(s, vectors, locks, registry, resolverEngine, chunkerEngine, cfg.Indexing, logger)

	consumer := jobqueue.NewConsumer(vkClient, "codegraph-worker-1", logger)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting worker, consuming from stream", slog.String("stream", jobqueue.StreamName))
	if err := consumer.Consume(ctx, func(ctx context.Context, msg jobqueue.IndexMessage) error {
		_, err := indexPipeline.Run(ctx, msg.ProjectID)
		return err
	}); err != nil {
		if ctx.Err() == nil {
			logger.Error("consumer error", slog.String("error", err.Error()))
		}
	}

	logger.Info("worker stopped")
}
