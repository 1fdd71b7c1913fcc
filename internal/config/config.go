package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/findologic/plugin-shopware-5-sub000/pkg/config"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/database"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/validator"
)

// Native engine names.
const (
	EngineMemory        = "memory"
	EngineElasticsearch = "elasticsearch"
)

// Config holds all configuration for the search bridge.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int     `env:"HTTP_PORT" envDefault:"8080"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ExportAllowedCIDRs []string `env:"EXPORT_ALLOWED_CIDRS" envSeparator:","`
	DebugAllowedCIDRs  []string `env:"DEBUG_ALLOWED_CIDRS" envSeparator:","`
	TrustedProxyCIDRs  []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// Search service
	SearchServiceURL  string        `env:"SEARCH_SERVICE_URL" envDefault:"https://service.findologic.com/ps/xml_2.0"`
	Shopkey           string        `env:"SHOPKEY" validate:"required,shopkey"`
	SearchEnabled     bool          `env:"SEARCH_ENABLED" envDefault:"true"`
	NavigationEnabled bool          `env:"NAVIGATION_ENABLED" envDefault:"true"`
	SearchTimeout     time.Duration `env:"SEARCH_TIMEOUT" envDefault:"3s"`
	AliveTimeout      time.Duration `env:"ALIVE_TIMEOUT" envDefault:"1s"`
	PluginRevision    string        `env:"PLUGIN_REVISION" envDefault:"1.0.0"`
	ShopType          string        `env:"SHOP_TYPE" envDefault:"Shopware5"`

	// Native fallback engine (memory or elasticsearch)
	NativeEngine       string `env:"NATIVE_ENGINE" envDefault:"memory" validate:"oneof=memory elasticsearch"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"shop_products"`

	// PostgreSQL
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"shop"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"shop"`
	DBName     string `env:"DB_NAME" envDefault:"shop"`
	DBSSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	DBMaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Export
	FeedCacheTTL         time.Duration `env:"FEED_CACHE_TTL" envDefault:"10m"`
	ExportHideOutOfStock bool          `env:"EXPORT_HIDE_OUT_OF_STOCK" envDefault:"false"`
	ShopBaseURL          string        `env:"SHOP_BASE_URL" envDefault:"http://localhost"`
	ShopRootCategoryID   int           `env:"SHOP_ROOT_CATEGORY_ID" envDefault:"3"`
	DefaultCustomerGroup string        `env:"DEFAULT_CUSTOMER_GROUP" envDefault:"EK"`
	ExportMaxCount       int           `env:"EXPORT_MAX_COUNT" envDefault:"500"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"searchbridge"`
	// Park events that fail every retry on shop.dlq.<topic>
	KafkaDeadLetters bool `env:"KAFKA_DEAD_LETTERS" envDefault:"true"`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint      string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load searchbridge config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDotenv is Load for the CLI: files are read into the environment first.
func LoadWithDotenv(files ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, files...); err != nil {
		return nil, fmt.Errorf("load searchbridge config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SearchTimeout <= 0 || c.AliveTimeout <= 0 {
		return fmt.Errorf("search and alive timeouts must be positive")
	}
	if c.ExportMaxCount < 1 {
		return fmt.Errorf("invalid export max count: %d", c.ExportMaxCount)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	return nil
}

// Postgres returns the database connection settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		DBName:          c.DBName,
		SSLMode:         c.DBSSLMode,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Redis returns the feed cache connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:         c.RedisHost,
		Port:         c.RedisPort,
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}
