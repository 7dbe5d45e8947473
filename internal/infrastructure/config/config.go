package config

import (
	"fmt"
	"strings"
	"time"

	"meal-planner/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 後端未設定時使用的佔位值
const (
	PlaceholderURL = "https://placeholder-url.supabase.co"
	PlaceholderKey = "placeholder-key"
)

// 閘道驅動
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// 工作階段索引後端
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config 應用配置
type Config struct {
	App            AppConfig       `mapstructure:"app"`
	Server         ServerConfig    `mapstructure:"server"`
	Supabase       SupabaseConfig  `mapstructure:"supabase"`
	Gateway        GatewayConfig   `mapstructure:"gateway"`
	Postgres       PostgresConfig  `mapstructure:"postgres"`
	Session        SessionConfig   `mapstructure:"session"`
	Redis          RedisConfig     `mapstructure:"redis"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow    time.Duration   `mapstructure:"dedup_window"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	LogLevel       string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`
}

// SupabaseConfig 後端即服務設定
type SupabaseConfig struct {
	URL        string        `mapstructure:"url"`
	AnonKey    string        `mapstructure:"anon_key"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

// IsConfigured 檢查後端是否已正確設定（非佔位值）
func (c SupabaseConfig) IsConfigured() bool {
	return c.URL != "" && c.AnonKey != "" &&
		c.URL != PlaceholderURL && c.AnonKey != PlaceholderKey
}

// GatewayConfig 資料閘道設定
type GatewayConfig struct {
	Driver string `mapstructure:"driver"`
}

// PostgresConfig 直連資料庫設定（gateway.driver=postgres 時使用）
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// SessionConfig 工作階段設定
type SessionConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	EventBuffer     int           `mapstructure:"event_buffer"`
}

// RedisConfig Redis 設定（session.backend=redis 時使用）
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可有可無，缺少時僅使用環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("supabase.url", "SUPABASE_URL", "VITE_SUPABASE_URL")
	v.BindEnv("supabase.anon_key", "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY")
	v.BindEnv("supabase.jwt_secret", "SUPABASE_JWT_SECRET")
	v.BindEnv("gateway.driver", "GATEWAY_DRIVER")
	v.BindEnv("postgres.dsn", "DATABASE_URL")
	v.BindEnv("session.backend", "SESSION_BACKEND")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("server.port", "PORT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 互動式服務不因缺少後端設定而失敗，改以佔位值進入示範模式
	applyPlaceholders(&config.Supabase)

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"supabase_url:", config.Supabase.URL,
		"supabase_anon_key:", common.MaskSecret(config.Supabase.AnonKey),
		"gateway_driver:", config.Gateway.Driver,
		"session_backend:", config.Session.Backend,
	)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// RequireBackend 用於必須連線後端的非互動指令，未設定時直接失敗
func (c *Config) RequireBackend() error {
	if c.Gateway.Driver == DriverPostgres {
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when gateway driver is postgres")
		}
		return nil
	}
	if !c.Supabase.IsConfigured() {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}
	return nil
}

// DemoOnly 後端未設定時所有工作階段都以示範模式運作
func (c *Config) DemoOnly() bool {
	return c.RequireBackend() != nil
}

func applyPlaceholders(cfg *SupabaseConfig) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		fmt.Println("Warning: SUPABASE_URL / SUPABASE_ANON_KEY not set, running in demo mode")
	}
	if cfg.URL == "" {
		cfg.URL = PlaceholderURL
	}
	if cfg.AnonKey == "" {
		cfg.AnonKey = PlaceholderKey
	}
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "meal-planner")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_size", 1<<20) // 1MB

	// 後端設定
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.anon_key", "")
	v.SetDefault("supabase.jwt_secret", "")
	v.SetDefault("supabase.timeout", "10s")
	v.SetDefault("supabase.retry_count", 1)

	v.SetDefault("gateway.driver", DriverREST)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 2)

	// 工作階段設定
	v.SetDefault("session.backend", SessionBackendMemory)
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.max_sessions", 10000)
	v.SetDefault("session.cleanup_interval", "10m")
	v.SetDefault("session.event_buffer", 16)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "meal-planner:session:")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Gateway.Driver {
	case DriverREST, DriverPostgres:
	default:
		return fmt.Errorf("unknown gateway driver %q", config.Gateway.Driver)
	}

	switch config.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", config.Session.Backend)
	}

	if config.Session.TTL <= 0 {
		return fmt.Errorf("invalid session ttl")
	}
	if config.Session.MaxSessions <= 0 {
		return fmt.Errorf("invalid session max size")
	}
	if config.Session.CleanupInterval <= 0 {
		return fmt.Errorf("invalid session cleanup interval")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
