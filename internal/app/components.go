package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Daption-ciray/proapp/internal/cache"
	rediscache "github.com/Daption-ciray/proapp/internal/cache/redis"
	"github.com/Daption-ciray/proapp/internal/config"
	"github.com/Daption-ciray/proapp/internal/engine"
	bleveengine "github.com/Daption-ciray/proapp/internal/engine/bleve"
	esengine "github.com/Daption-ciray/proapp/internal/engine/elasticsearch"
	"github.com/Daption-ciray/proapp/internal/engine/memory"
	"github.com/Daption-ciray/proapp/internal/executor"
	"github.com/Daption-ciray/proapp/internal/extractor"
	"github.com/Daption-ciray/proapp/internal/extractor/openai"
	"github.com/Daption-ciray/proapp/internal/history"
	"github.com/Daption-ciray/proapp/internal/personalization"
	"github.com/Daption-ciray/proapp/internal/repository"
	memstore "github.com/Daption-ciray/proapp/internal/repository/memory"
	pgstore "github.com/Daption-ciray/proapp/internal/repository/postgres"
	"github.com/Daption-ciray/proapp/internal/service"
	"github.com/Daption-ciray/proapp/migrations"
	"github.com/Daption-ciray/proapp/pkg/database"
	"github.com/Daption-ciray/proapp/pkg/health"
	"github.com/Daption-ciray/proapp/pkg/httpclient"
	pkgkafka "github.com/Daption-ciray/proapp/pkg/kafka"
)

// asyncRecorder is a history.Recorder whose pending writes can be awaited.
type asyncRecorder interface {
	history.Recorder
	Wait()
}

type closer struct {
	name string
	fn   func() error
}

// Components holds the services built from configuration. They are shared
// by the HTTP server and the command line client.
type Components struct {
	Index       engine.Index
	Search      *service.SearchService
	Preferences *service.PreferenceService
	// Extractor is nil when no intent extraction backend is configured.
	Extractor extractor.Extractor
	Health    *health.Handler

	recorder asyncRecorder
	consumer *pkgkafka.Consumer
	closers  []closer
	logger   *slog.Logger
}

// Build connects to every configured backend. On error, whatever was
// already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Components, err error) {
	c := &Components{Health: health.NewHandler(), logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.Index, err = c.openIndex(ctx, cfg); err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.recorder, c.consumer = c.openHistory(cfg, store)

	breaker := executor.DefaultBreakerConfig()
	breaker.OpenTimeout = cfg.BreakerOpenTimeout

	c.Search = service.NewSearchService(
		c.Index,
		executor.New(c.Index, cfg.BackendTimeout, breaker, logger),
		personalization.NewMerger(store, logger),
		c.openCache(ctx, cfg),
		cfg.CacheTTL,
		c.recorder,
		logger,
	)
	c.Preferences = service.NewPreferenceService(store, logger)

	if cfg.OpenAIAPIKey != "" {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.MaxRetries = 1
		c.Extractor = openai.New(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpclient.New(httpCfg),
		}, logger)
		logger.Info("intent extraction enabled", slog.String("model", cfg.OpenAIModel))
	} else {
		logger.Info("no OPENAI_API_KEY set, chat search will use the raw message")
	}

	return c, nil
}

// Logger returns the logger the components were built with.
func (c *Components) Logger() *slog.Logger { return c.logger }

func (c *Components) openIndex(ctx context.Context, cfg *config.Config) (engine.Index, error) {
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		es, err := esengine.NewWithConfig(ctx, elasticsearch.Config{
			Addresses: []string{cfg.ElasticsearchURL},
			Transport: httpclient.NewTransport(httpclient.DefaultConfig()),
		}, cfg.ElasticsearchIndex, c.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		c.Health.Register("elasticsearch", es.Ping)
		c.logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", es.IndexName()),
		)
		return es, nil

	case config.EngineBleve:
		bl, err := bleveengine.Open(cfg.BlevePath, c.logger)
		if err != nil {
			return nil, fmt.Errorf("init bleve engine: %w", err)
		}
		c.closers = append(c.closers, closer{"bleve", bl.Close})
		c.Health.Register("bleve", bl.Ping)
		c.logger.Info("bleve search engine initialized", slog.String("path", cfg.BlevePath))
		return bl, nil

	default:
		c.logger.Info("in-memory search engine initialized")
		return memory.New(), nil
	}
}

// openCache returns the Redis cache, or nil (no caching) when caching is
// disabled or Redis does not answer the startup probe.
func (c *Components) openCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if !cfg.CacheEnabled {
		c.logger.Info("result caching disabled by configuration")
		return nil
	}
	client := database.NewRedisClient(cfg.Redis())
	c.closers = append(c.closers, closer{"redis", client.Close})
	c.Health.RegisterOptional("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return rediscache.Connect(ctx, client, c.logger)
}

func (c *Components) openStore(ctx context.Context, cfg *config.Config) (repository.PreferenceStore, error) {
	if cfg.PreferenceStore == config.StoreMemory {
		c.logger.Warn("using in-memory preference store, data is lost on restart")
		return memstore.NewStore(), nil
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("init preference store: %w", err)
	}
	c.closers = append(c.closers, closer{"postgres", func() error { pool.Close(); return nil }})

	if cfg.DBRunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, c.logger); err != nil {
			return nil, fmt.Errorf("migrate preference store: %w", err)
		}
	}

	if err := prometheus.Register(database.NewPoolStatsCollector(pool, "preferences")); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}
	c.Health.Register("postgres", pool.Ping)
	c.logger.Info("postgres preference store initialized",
		slog.String("host", pgCfg.Host),
		slog.String("database", pgCfg.DBName),
	)
	return pgstore.NewStore(pool, database.NewQueryTracer(cfg.DBSlowQueryTimeout, c.logger)), nil
}

func (c *Components) openHistory(cfg *config.Config, store repository.PreferenceStore) (asyncRecorder, *pkgkafka.Consumer) {
	if cfg.HistorySink != config.SinkKafka {
		return history.NewDirectRecorder(store, cfg.HistoryTimeout, c.logger), nil
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), c.logger)
	c.closers = append(c.closers, closer{"kafka producer", producer.Close})

	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    history.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, history.NewHandler(store), c.logger)
	c.closers = append(c.closers, closer{"kafka consumer", consumer.Close})

	c.Health.RegisterOptional("kafka", producer.Ping)
	c.logger.Info("search history published to kafka",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", history.Topic),
	)
	return history.NewKafkaRecorder(producer, cfg.HistoryTimeout, c.logger), consumer
}

// Close waits for pending history writes and releases every backend in
// reverse order of opening.
func (c *Components) Close() error {
	if c.recorder != nil {
		c.recorder.Wait()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(); err != nil {
			c.logger.Error("close failed", slog.String("component", cl.name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close %s: %w", cl.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
