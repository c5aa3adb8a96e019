package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 定價模式
const (
	PricingModeEstimate  = "estimate"
	PricingModeWebscrape = "webscrape"
)

// 無法解析價格的處理策略
const (
	UnresolvedExclude = "exclude"
	UnresolvedZero    = "zero"
)

// AI 提供者
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	AI          AIConfig         `mapstructure:"ai"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Gemini      GeminiConfig     `mapstructure:"gemini"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Pricing     PricingConfig    `mapstructure:"pricing"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
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
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// AIConfig AI 配置
type AIConfig struct {
	Provider    string  `mapstructure:"provider"`
	Temperature float64 `mapstructure:"temperature"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 共享快取設定
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CatalogConfig 商店價格資料集設定
type CatalogConfig struct {
	Dir    string   `mapstructure:"dir"`
	Stores []string `mapstructure:"stores"`
}

// PricingConfig 價格比對設定
type PricingConfig struct {
	Mode             string        `mapstructure:"mode"`
	UnresolvedPolicy string        `mapstructure:"unresolved_policy"`
	OracleTimeout    time.Duration `mapstructure:"oracle_timeout"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindEnvs(v)

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "ai_provider:", v.GetString("ai.provider"),
		"openrouter_api_key:", maskAPIKey(v.GetString("openrouter.api_key")),
		"gemini_api_key:", maskAPIKey(v.GetString("gemini.api_key")))

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.normalize()

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func bindEnvs(v *viper.Viper) {
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "AI_KEY")
	v.BindEnv("gemini.model", "GEMINI_MODEL")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("catalog.dir", "CATALOG_DIR")
	v.BindEnv("catalog.stores", "CATALOG_STORES")
	v.BindEnv("pricing.mode", "PRICING_MODE")
	v.BindEnv("pricing.unresolved_policy", "PRICING_UNRESOLVED_POLICY")
	v.BindEnv("pricing.oracle_timeout", "ORACLE_TIMEOUT")
	v.BindEnv("pricing.concurrency", "PRICING_CONCURRENCY")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("server.port", "PORT")
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "grocery-recommender")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// AI 設定
	v.SetDefault("ai.provider", ProviderOpenRouter)
	v.SetDefault("ai.temperature", 0.2)

	// OpenRouter 設定
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.5-flash")
	v.SetDefault("openrouter.max_tokens", 1000)
	v.SetDefault("openrouter.timeout", "60s")

	// Gemini 設定
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.max_tokens", 2048)
	v.SetDefault("gemini.timeout", "60s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	// 隊列設定
	v.SetDefault("queue.workers", 8)
	v.SetDefault("queue.max_size", 256)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 資料集設定
	v.SetDefault("catalog.dir", "csv")
	v.SetDefault("catalog.stores", []string{"osave", "dali", "dti"})

	// 價格比對設定
	v.SetDefault("pricing.mode", PricingModeEstimate)
	v.SetDefault("pricing.unresolved_policy", UnresolvedExclude)
	v.SetDefault("pricing.oracle_timeout", "20s")
	v.SetDefault("pricing.concurrency", 4)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// normalize 統一大小寫與空白
func (c *Config) normalize() {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Pricing.Mode = strings.ToLower(strings.TrimSpace(c.Pricing.Mode))
	c.Pricing.UnresolvedPolicy = strings.ToLower(strings.TrimSpace(c.Pricing.UnresolvedPolicy))

	stores := make([]string, 0, len(c.Catalog.Stores))
	for _, s := range c.Catalog.Stores {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			stores = append(stores, s)
		}
	}
	c.Catalog.Stores = stores
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.AI.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("unsupported ai provider %q", config.AI.Provider)
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	// 驗證資料集設定
	if len(config.Catalog.Stores) == 0 {
		return fmt.Errorf("at least one catalog store is required")
	}
	seen := make(map[string]bool, len(config.Catalog.Stores))
	for _, s := range config.Catalog.Stores {
		if seen[s] {
			return fmt.Errorf("duplicate catalog store %q", s)
		}
		seen[s] = true
	}

	// 驗證價格比對設定
	switch config.Pricing.Mode {
	case PricingModeEstimate, PricingModeWebscrape:
	default:
		return fmt.Errorf("invalid pricing mode %q", config.Pricing.Mode)
	}
	switch config.Pricing.UnresolvedPolicy {
	case UnresolvedExclude, UnresolvedZero:
	default:
		return fmt.Errorf("invalid unresolved price policy %q", config.Pricing.UnresolvedPolicy)
	}
	if config.Pricing.OracleTimeout <= 0 {
		return fmt.Errorf("invalid oracle timeout")
	}
	if config.Pricing.Concurrency <= 0 {
		return fmt.Errorf("invalid pricing concurrency")
	}

	return nil
}
