package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Gateway     GatewayConfig    `mapstructure:"gateway"`
	Oracle      OracleConfig     `mapstructure:"oracle"`
	Allocation  AllocationConfig `mapstructure:"allocation"`
	Execution   ExecutionConfig  `mapstructure:"execution"`
	Ledger      LedgerConfig     `mapstructure:"ledger"`
	Scheduler   SchedulerConfig  `mapstructure:"scheduler"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Host            string `mapstructure:"host"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min"`
	AdminToken      string `mapstructure:"admin_token"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig is optional; with Enabled false the fund lock is process local
// and prices are not cached.
type RedisConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	PoolSize        int    `mapstructure:"pool_size"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	PriceTTLSeconds int    `mapstructure:"price_ttl_seconds"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPClientConfig is shared by the outbound HTTP collaborators
type HTTPClientConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	APIKey          string  `mapstructure:"api_key"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Timeout returns the request timeout
func (c HTTPClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type GatewayConfig struct {
	HTTPClientConfig `mapstructure:",squash"`
	// Simulated funds are routed here when set
	PaperBaseURL string `mapstructure:"paper_base_url"`
}

type OracleConfig struct {
	HTTPClientConfig `mapstructure:",squash"`
}

type AllocationConfig struct {
	HTTPClientConfig `mapstructure:",squash"`
}

type ExecutionConfig struct {
	SlippagePercent      float64 `mapstructure:"slippage_percent"`
	DivergenceThreshold  float64 `mapstructure:"divergence_threshold"`
	DustBaseAmount       float64 `mapstructure:"dust_base_amount"`
	MinTradeValue        float64 `mapstructure:"min_trade_value"`
	SubmitRetries        int     `mapstructure:"submit_retries"`
	PollAttempts         int     `mapstructure:"poll_attempts"`
	PollIntervalSeconds  int     `mapstructure:"poll_interval_seconds"`
}

type LedgerConfig struct {
	DustQuantity            float64 `mapstructure:"dust_quantity"`
	NearZeroInvestmentRatio float64 `mapstructure:"near_zero_investment_ratio"`
}

type SchedulerConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Schedule              string `mapstructure:"schedule"`
	MaxConcurrentFunds    int    `mapstructure:"max_concurrent_funds"`
	FundTimeoutSeconds    int    `mapstructure:"fund_timeout_seconds"`
	LockTTLSeconds        int    `mapstructure:"lock_ttl_seconds"`
	SimulatedWindowHours  int    `mapstructure:"simulated_window_hours"`
	Timezone              string `mapstructure:"timezone"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Load reads configs/config.yaml (optional), .env and the environment
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.rate_limit_per_min", 60)
	v.SetDefault("server.admin_token", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fund_service")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "fund:")
	v.SetDefault("redis.price_ttl_seconds", 30)

	// Outbound collaborators
	for _, section := range []string{"gateway", "oracle", "allocation"} {
		v.SetDefault(section+".base_url", "")
		v.SetDefault(section+".api_key", "")
		v.SetDefault(section+".timeout_seconds", 30)
		v.SetDefault(section+".rate_limit_per_sec", 10.0)
		v.SetDefault(section+".rate_limit_burst", 5)
	}
	v.SetDefault("gateway.paper_base_url", "")

	// Execution defaults
	v.SetDefault("execution.slippage_percent", 1.0)
	v.SetDefault("execution.divergence_threshold", 0.5)
	v.SetDefault("execution.dust_base_amount", 0.000001)
	v.SetDefault("execution.min_trade_value", 0.001)
	v.SetDefault("execution.submit_retries", 1)
	v.SetDefault("execution.poll_attempts", 10)
	v.SetDefault("execution.poll_interval_seconds", 5)

	// Ledger defaults
	v.SetDefault("ledger.dust_quantity", 0.000000001)
	v.SetDefault("ledger.near_zero_investment_ratio", 0.01)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.schedule", "0 * * * *")
	v.SetDefault("scheduler.max_concurrent_funds", 3)
	v.SetDefault("scheduler.fund_timeout_seconds", 900)
	v.SetDefault("scheduler.lock_ttl_seconds", 1200)
	v.SetDefault("scheduler.simulated_window_hours", 720)
	v.SetDefault("scheduler.timezone", "UTC")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "fund-service")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)
}

func overrideFromEnv(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		v.Set("redis.url", redisURL)
		v.Set("redis.enabled", true)
	}

	if key := os.Getenv("GATEWAY_API_KEY"); key != "" {
		v.Set("gateway.api_key", key)
	}
	if key := os.Getenv("ORACLE_API_KEY"); key != "" {
		v.Set("oracle.api_key", key)
	}
	if key := os.Getenv("ALLOCATION_API_KEY"); key != "" {
		v.Set("allocation.api_key", key)
	}

	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		v.Set("server.admin_token", token)
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("tracing.endpoint", endpoint)
		v.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	for name, c := range map[string]HTTPClientConfig{
		"gateway":    config.Gateway.HTTPClientConfig,
		"oracle":     config.Oracle.HTTPClientConfig,
		"allocation": config.Allocation.HTTPClientConfig,
	} {
		if strings.TrimSpace(c.BaseURL) == "" {
			return fmt.Errorf("%s base url is required", name)
		}
		if c.TimeoutSeconds <= 0 {
			return fmt.Errorf("%s timeout must be positive", name)
		}
	}

	if config.Execution.PollAttempts < 1 {
		return fmt.Errorf("execution poll attempts must be at least 1")
	}
	if config.Execution.SubmitRetries < 0 {
		return fmt.Errorf("execution submit retries cannot be negative")
	}
	if config.Execution.SlippagePercent < 0 || config.Execution.SlippagePercent > 100 {
		return fmt.Errorf("execution slippage percent must be within [0, 100]")
	}
	if config.Execution.MinTradeValue < 0 {
		return fmt.Errorf("execution min trade value cannot be negative")
	}

	if config.Scheduler.MaxConcurrentFunds < 1 {
		return fmt.Errorf("scheduler max concurrent funds must be at least 1")
	}

	return nil
}
