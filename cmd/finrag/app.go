package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/config"
	"github.com/kailas-cloud/finrag/internal/db"
	dbRedis "github.com/kailas-cloud/finrag/internal/db/redis"
	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/doctype"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	"github.com/kailas-cloud/finrag/internal/loader"
	logpkg "github.com/kailas-cloud/finrag/internal/logger"
	"github.com/kailas-cloud/finrag/internal/metrics"
	"github.com/kailas-cloud/finrag/internal/repository/embcache"
	"github.com/kailas-cloud/finrag/internal/repository/memstore"
	"github.com/kailas-cloud/finrag/internal/repository/vectorstore"
	openaiEmb "github.com/kailas-cloud/finrag/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/finrag/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/finrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/finrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/finrag/internal/usecase/ingest"
	"github.com/kailas-cloud/finrag/internal/usecase/processor"
	searchuc "github.com/kailas-cloud/finrag/internal/usecase/search"
)

// vectorStore is what both store drivers provide to the use cases.
//
//nolint:interfacebloat // union of the ingest, search, collection and health contracts
type vectorStore interface {
	EnsureCollection(ctx context.Context) error
	AddChunks(ctx context.Context, chunks []chunk.DocumentChunk) error
	Query(ctx context.Context, text string, n int) ([]result.Result, error)
	Get(ctx context.Context, id string) (chunk.DocumentChunk, error)
	Stats(ctx context.Context) (domain.CollectionStats, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// app is the composition root shared by the serve and CLI commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	vector   domain.VectorConfig
	settings config.DocumentSettings

	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	store         vectorStore
	redis         *dbRedis.Store

	processor   *processor.Service
	ingest      *ingestuc.Service
	search      *searchuc.Service
	collections *collectionuc.Service
	health      *healthuc.Service
}

// loadConfig reads --config when given, config/<env>.yaml otherwise.
func loadConfig(opts *rootOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(opts.env)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newCLILogger builds the stderr logger used by one-shot commands.
func newCLILogger(opts *rootOptions) (*zap.Logger, error) {
	l, err := logpkg.New(logpkg.EnvCLI, opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l.Logger, nil
}

func vectorConfig(cfg *config.Config) domain.VectorConfig {
	return domain.VectorConfig{
		Provider:            cfg.Embedding.Provider,
		Model:               cfg.Embedding.Model,
		Dimensions:          cfg.Embedding.Dimensions,
		DistanceMetric:      cfg.Embedding.DistanceMetric,
		Algorithm:           cfg.Embedding.Algorithm,
		DocumentInstruction: cfg.Embedding.DocumentInstruction,
		QueryInstruction:    cfg.Embedding.QueryInstruction,
	}
}

// newProcessor builds the document processor alone; the chunk command needs nothing else.
func newProcessor(settings config.DocumentSettings, logger *zap.Logger) (*processor.Service, error) {
	metrics.RegisterIngestMetrics()

	src := loader.New(loader.WithMaxBytes(settings.MaxFileBytes))
	proc, err := processor.New(src, processor.Config{
		ChunkSize:           settings.ChunkSize,
		ChunkOverlap:        settings.ChunkOverlap,
		DocType:             doctype.Parse(settings.DocType),
		SupportedExtensions: settings.SupportedExtensions,
		Workers:             settings.Workers,
	}, processor.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}
	return proc, nil
}

// buildApp connects to the store, assembles the embedder chain and the use cases.
func buildApp(ctx context.Context, cfg config.Config, docType string, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		vector:   vectorConfig(&cfg),
		settings: cfg.DocumentSettings(docType),
	}

	proc, err := newProcessor(a.settings, logger)
	if err != nil {
		return nil, err
	}
	a.processor = proc

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	if cfg.Store.Driver != config.DriverMemory {
		a.redis, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:        cfg.Store.Addrs,
			Username:     cfg.Store.Username,
			Password:     cfg.Store.Password,
			DB:           cfg.Store.DB,
			Valkey:       cfg.Store.Driver == config.DriverValkey,
			WriteTimeout: time.Duration(cfg.Store.WriteTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Store.Driver, err)
		}
		timeout := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
		if err := a.redis.WaitForReady(ctx, timeout); err != nil {
			a.Close()
			return nil, fmt.Errorf("store not ready: %w", err)
		}
		logger.Info("Connected to vector store",
			zap.String("driver", cfg.Store.Driver),
			zap.Strings("addrs", cfg.Store.Addrs),
		)
	}

	a.docEmbedder = buildEmbedder(&cfg, a.vector.DocumentInstruction, a.redis, logger)
	a.queryEmbedder = buildEmbedder(&cfg, a.vector.QueryInstruction, a.redis, logger)

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.ingest = ingestuc.New(a.processor, a.store, logger).WithStagingDir(cfg.Upload.StagingDir)
	a.search = searchuc.New(a.store).WithLimits(cfg.Search.DefaultNResults, cfg.Search.MaxNResults)
	a.collections = collectionuc.New(a.store)
	a.health = healthuc.New(a.store, newEmbeddingHealthChecker(a.docEmbedder)).
		WithTimeout(time.Duration(cfg.HTTP.HealthProbeSec) * time.Second)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.redis == nil {
		repo, err := memstore.New(a.docEmbedder, a.queryEmbedder, memstore.Config{
			Collection: a.cfg.Store.Collection,
			Path:       a.cfg.Store.Path,
			Vector:     a.vector,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("open memory store: %w", err)
		}
		a.store = repo
		return nil
	}

	repo, err := vectorstore.New(a.redis, a.docEmbedder, a.queryEmbedder, vectorstore.Config{
		Collection: a.cfg.Store.Collection,
		KeyPrefix:  a.cfg.Store.KeyPrefix,
		Vector:     a.vector,
		TextSearch: a.cfg.Store.TextSearch && a.cfg.Store.Driver == config.DriverRedis,
		HNSW: db.HNSWParams{
			M:              a.cfg.Store.HNSW.M,
			EFConstruction: a.cfg.Store.HNSW.EFConstruction,
		},
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create vector store: %w", err)
	}
	if err := repo.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	a.store = repo
	return nil
}

// Close releases the store connection.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Batching -> Instruction
func buildEmbedder(
	cfg *config.Config,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		MaxRetries: cfg.Embedding.MaxRetries,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	// Cached. A nil *Store must not reach the interface-typed parameter.
	var embedder domain.Embedder = base
	if cache != nil && cfg.Embedding.Cache.Enabled {
		ns := cfg.Embedding.Cache.Namespace
		if ns == "" {
			ns = cfg.Embedding.Model
		}
		embedder = embcache.New(base, cache, metrics.EmbeddingCacheTotal, logger).
			WithNamespace(ns).
			WithTTL(time.Duration(cfg.Embedding.Cache.TTLHours) * time.Hour).
			WithDimensions(cfg.Embedding.Dimensions)
	}

	embedder = embeddinguc.NewBatchingEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	).WithMaxBatchSize(cfg.Embedding.MaxBatchSize).WithConcurrency(cfg.Embedding.Concurrency)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
