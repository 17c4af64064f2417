package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Daption-ciray/proapp/pkg/config"
	"github.com/Daption-ciray/proapp/pkg/database"
)

// Index backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineBleve         = "bleve"
	EngineMemory        = "memory"
)

// Preference stores.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// History sinks.
const (
	SinkDirect = "direct"
	SinkKafka  = "kafka"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Index backend
	SearchEngine       string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string        `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	BlevePath          string        `env:"BLEVE_PATH"`
	BackendTimeout     time.Duration `env:"SEARCH_BACKEND_TIMEOUT" envDefault:"3s"`
	BreakerOpenTimeout time.Duration `env:"SEARCH_BREAKER_OPEN_TIMEOUT" envDefault:"15s"`

	// Result cache
	CacheEnabled  bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTL      time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"24h"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	// Preference store
	PreferenceStore    string        `env:"PREFERENCE_STORE" envDefault:"postgres"`
	DBHost             string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort             int           `env:"DB_PORT" envDefault:"5432"`
	DBUser             string        `env:"DB_USER" envDefault:"search"`
	DBPassword         string        `env:"DB_PASSWORD" envDefault:"search_secret"`
	DBName             string        `env:"DB_NAME" envDefault:"search"`
	DBSSLMode          string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBRunMigrations    bool          `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
	DBSlowQueryTimeout time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Search history
	HistorySink    string        `env:"HISTORY_SINK" envDefault:"direct"`
	HistoryTimeout time.Duration `env:"HISTORY_APPEND_TIMEOUT" envDefault:"2s"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID   string        `env:"KAFKA_GROUP_ID" envDefault:"search-history"`

	// Intent extraction; disabled without an API key.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL"`

	// Tracing
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint string `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
}

// Load reads configuration from the environment, after loading envFile when
// it exists. Pass "" to skip the file.
func Load(envFile string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, envFile); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Postgres returns the pool settings for the preference store.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.DBHost
	pg.Port = c.DBPort
	pg.User = c.DBUser
	pg.Password = c.DBPassword
	pg.DBName = c.DBName
	pg.SSLMode = c.DBSSLMode
	pg.MaxConns = c.DBMaxConns
	if pg.MinConns > pg.MaxConns {
		pg.MinConns = pg.MaxConns
	}
	return pg
}

// Redis returns the result cache client settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineBleve, EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: want elasticsearch, bleve or memory", c.SearchEngine)
	}
	switch c.PreferenceStore {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid PREFERENCE_STORE %q: want postgres or memory", c.PreferenceStore)
	}
	switch c.HistorySink {
	case SinkDirect:
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when HISTORY_SINK=kafka")
		}
	default:
		return fmt.Errorf("invalid HISTORY_SINK %q: want direct or kafka", c.HistorySink)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("SEARCH_BACKEND_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must be positive")
	}
	if c.HistoryTimeout <= 0 {
		return fmt.Errorf("HISTORY_APPEND_TIMEOUT must be positive")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	return nil
}
