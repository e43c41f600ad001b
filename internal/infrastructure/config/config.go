package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	JWT         JWTConfig
	Marketplace MarketplaceConfig
	Pipeline    PipelineConfig
	Replenish   ReplenishConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// ConnMaxLifetime and ConnMaxIdleTime are in minutes
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// JWTConfig holds bearer-token settings for the API
type JWTConfig struct {
	Secret string
	Issuer string
}

// MarketplaceConfig holds marketplace API client settings
type MarketplaceConfig struct {
	APIBaseURL     string
	AccessToken    string
	SellerID       string // resolved via users/me on first use when empty
	TimeoutSeconds int
	MaxRetries     int
	RetryBackoff   time.Duration
	BatchSize      int           // listing detail batch size, API caps at 20
	BatchDelay     time.Duration // inter-batch throttle
}

// PipelineConfig holds continuation-pipeline settings
type PipelineConfig struct {
	Enabled bool
	// StageDelay is the settle delay between a stage completing and its
	// successor firing, letting buffered writes flush and respecting platform
	// limits on consecutive invocations
	StageDelay time.Duration
	// PollInterval is how often the driver checks for due continuations
	PollInterval time.Duration
	// LeaseTTL bounds how long a crashed run can block the chain
	LeaseTTL time.Duration
	// MaxConsecutiveFailures is the dead-letter limit: the run is marked
	// failed once this many stage executions fail in a row
	MaxConsecutiveFailures int
	// OrderLookbackDays is the trailing window refreshed by the orders stage
	OrderLookbackDays int
	// SalesWindowDays is the trailing sales total computed by the listings stage
	SalesWindowDays int
	// StockCacheTTL bounds the fulfillment-stock snapshot memoization
	StockCacheTTL time.Duration
}

// ReplenishConfig holds replenishment computation settings
type ReplenishConfig struct {
	LeadTimeDays   int
	ServiceLevel   float64
	EvalWindowDays int
	DemandPolicy   string // days_with_sales or full_window
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FULLSYNC_ prefix (e.g. FULLSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FULLSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Marketplace: MarketplaceConfig{
			APIBaseURL:     v.GetString("marketplace.api_base_url"),
			AccessToken:    v.GetString("marketplace.access_token"),
			SellerID:       v.GetString("marketplace.seller_id"),
			TimeoutSeconds: v.GetInt("marketplace.timeout_seconds"),
			MaxRetries:     v.GetInt("marketplace.max_retries"),
			RetryBackoff:   v.GetDuration("marketplace.retry_backoff"),
			BatchSize:      v.GetInt("marketplace.batch_size"),
			BatchDelay:     v.GetDuration("marketplace.batch_delay"),
		},
		Pipeline: PipelineConfig{
			Enabled:                v.GetBool("pipeline.enabled"),
			StageDelay:             v.GetDuration("pipeline.stage_delay"),
			PollInterval:           v.GetDuration("pipeline.poll_interval"),
			LeaseTTL:               v.GetDuration("pipeline.lease_ttl"),
			MaxConsecutiveFailures: v.GetInt("pipeline.max_consecutive_failures"),
			OrderLookbackDays:      v.GetInt("pipeline.order_lookback_days"),
			SalesWindowDays:        v.GetInt("pipeline.sales_window_days"),
			StockCacheTTL:          v.GetDuration("pipeline.stock_cache_ttl"),
		},
		Replenish: ReplenishConfig{
			LeadTimeDays:   v.GetInt("replenish.lead_time_days"),
			ServiceLevel:   v.GetFloat64("replenish.service_level"),
			EvalWindowDays: v.GetInt("replenish.eval_window_days"),
			DemandPolicy:   v.GetString("replenish.demand_policy"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fullsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fullsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}

	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fullsync"
	}

	if cfg.Marketplace.APIBaseURL == "" {
		cfg.Marketplace.APIBaseURL = "https://api.mercadolibre.com"
	}
	if cfg.Marketplace.TimeoutSeconds == 0 {
		cfg.Marketplace.TimeoutSeconds = 30
	}
	if cfg.Marketplace.MaxRetries == 0 {
		cfg.Marketplace.MaxRetries = 3
	}
	if cfg.Marketplace.RetryBackoff == 0 {
		cfg.Marketplace.RetryBackoff = 2 * time.Second
	}
	if cfg.Marketplace.BatchSize == 0 || cfg.Marketplace.BatchSize > 20 {
		cfg.Marketplace.BatchSize = 20
	}
	if cfg.Marketplace.BatchDelay == 0 {
		cfg.Marketplace.BatchDelay = 2 * time.Second
	}

	if cfg.Pipeline.StageDelay == 0 {
		cfg.Pipeline.StageDelay = 1 * time.Minute
	}
	if cfg.Pipeline.PollInterval == 0 {
		cfg.Pipeline.PollInterval = 10 * time.Second
	}
	if cfg.Pipeline.LeaseTTL == 0 {
		cfg.Pipeline.LeaseTTL = 2 * time.Hour
	}
	if cfg.Pipeline.MaxConsecutiveFailures == 0 {
		cfg.Pipeline.MaxConsecutiveFailures = 3
	}
	if cfg.Pipeline.OrderLookbackDays == 0 {
		cfg.Pipeline.OrderLookbackDays = 30
	}
	if cfg.Pipeline.SalesWindowDays == 0 {
		cfg.Pipeline.SalesWindowDays = 90
	}
	if cfg.Pipeline.StockCacheTTL == 0 {
		cfg.Pipeline.StockCacheTTL = 1 * time.Hour
	}

	if cfg.Replenish.LeadTimeDays == 0 {
		cfg.Replenish.LeadTimeDays = 14
	}
	if cfg.Replenish.ServiceLevel == 0 {
		cfg.Replenish.ServiceLevel = 1.65
	}
	if cfg.Replenish.EvalWindowDays == 0 {
		cfg.Replenish.EvalWindowDays = 30
	}
	if cfg.Replenish.DemandPolicy == "" {
		cfg.Replenish.DemandPolicy = "days_with_sales"
	}
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Marketplace.BatchSize < 1 || c.Marketplace.BatchSize > 20 {
		return fmt.Errorf("config: marketplace batch size must be 1-20, got %d", c.Marketplace.BatchSize)
	}
	if c.Pipeline.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("config: pipeline max consecutive failures must be positive")
	}
	if c.Replenish.ServiceLevel <= 0 {
		return fmt.Errorf("config: replenish service level must be positive")
	}
	switch c.Replenish.DemandPolicy {
	case "days_with_sales", "full_window":
	default:
		return fmt.Errorf("config: unknown demand policy %q", c.Replenish.DemandPolicy)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
