package config

import (
	"fmt"
	"strings"
	"time"

	"menu-gen-assistant/internal/pkg/common"

	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	YouTube     YouTubeConfig     `mapstructure:"youtube"`
	ImageSearch ImageSearchConfig `mapstructure:"image_search"`
	ImageGen    ImageGenConfig    `mapstructure:"image_gen"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Image       ImageConfig       `mapstructure:"image"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFile     string            `mapstructure:"log_file"`
	LogMode     string            `mapstructure:"log_mode"`
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
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// GeminiConfig Gemini 文字與視覺模型
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// YouTubeConfig 影片搜尋
type YouTubeConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ImageSearchConfig Google Custom Search 圖片搜尋
type ImageSearchConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	EngineID string        `mapstructure:"engine_id"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ImageGenConfig 圖片生成
type ImageGenConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// StorageConfig S3 儲存
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// DatabaseConfig 歷史紀錄資料庫
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig Redis 連線
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig JWT 驗證
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"`
	Window     time.Duration `mapstructure:"window"`
	MaxCallers int           `mapstructure:"max_callers"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxFetchBytes  int64         `mapstructure:"max_fetch_bytes"`
	MaxProbeBytes  int64         `mapstructure:"max_probe_bytes"`
	MaxDimension   int           `mapstructure:"max_dimension"`
	PlaceholderURL string        `mapstructure:"placeholder_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// DatabaseEnabled 是否啟用歷史紀錄
func (c *Config) DatabaseEnabled() bool {
	return c.Database.DSN != ""
}

// RedisEnabled 是否設定 Redis
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}

// LoadConfig 載入設定（.env 由 main 先行載入）
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	bindings := map[string]string{
		"gemini.api_key":         "GEMINI_API_KEY",
		"gemini.model":           "GEMINI_MODEL",
		"youtube.api_key":        "YOUTUBE_API_KEY",
		"image_search.api_key":   "GOOGLE_SEARCH_API_KEY",
		"image_search.engine_id": "GOOGLE_SEARCH_ENGINE_ID",
		"image_gen.enabled":      "IMAGE_GEN_ENABLED",
		"storage.bucket":         "S3_BUCKET_NAME",
		"storage.region":         "AWS_REGION",
		"database.dsn":           "DATABASE_URL",
		"redis.url":              "REDIS_URL",
		"auth.jwt_secret":        "JWT_SECRET",
		"cache.backend":          "CACHE_BACKEND",
		"rate_limit.enabled":     "RATE_LIMIT_ENABLED",
		"rate_limit.backend":     "RATE_LIMIT_BACKEND",
		"rate_limit.window":      "RATE_LIMIT_WINDOW",
		"log_level":              "LOG_LEVEL",
		"log_mode":               "LOG_MODE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
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
	v.SetDefault("app.name", "menu-gen-assistant")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allow_origins", []string{"*"})

	// 外部服務
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.timeout", "10s")
	v.SetDefault("image_search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("image_search.timeout", "10s")
	v.SetDefault("image_gen.enabled", false)
	v.SetDefault("image_gen.model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("storage.key_prefix", "recipe-images")

	// 資料庫
	v.SetDefault("database.driver", "postgres")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.key_prefix", "menugen:reply")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.window", "10s")
	v.SetDefault("rate_limit.max_callers", 10000)
	v.SetDefault("rate_limit.key_prefix", "menugen:ratelimit")

	// 圖片設定
	v.SetDefault("image.max_fetch_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_probe_bytes", 5*1024*1024)  // 5MB
	v.SetDefault("image.max_dimension", 1600)
	v.SetDefault("image.placeholder_url", "https://placehold.co/600x400?text=Recipe")
	v.SetDefault("image.timeout", "15s")

	// 日誌
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")
}

// validateConfig 驗證設定
func validateConfig(cfg *Config) error {
	if cfg.Gemini.APIKey == "" {
		return &common.ConfigurationError{Key: "gemini.api_key"}
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return &common.ConfigurationError{Key: "server.port", Err: fmt.Errorf("invalid port %d", cfg.Server.Port)}
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return &common.ConfigurationError{Key: "cache.ttl", Err: fmt.Errorf("must be positive")}
		}
		switch cfg.Cache.Backend {
		case "", "memory":
			if cfg.Cache.MaxSize <= 0 || cfg.Cache.CleanupInterval <= 0 {
				return &common.ConfigurationError{Key: "cache.max_size", Err: fmt.Errorf("max size and cleanup interval must be positive")}
			}
		case "redis":
			if !cfg.RedisEnabled() {
				return &common.ConfigurationError{Key: "redis.url", Err: fmt.Errorf("required by redis cache backend")}
			}
		default:
			return &common.ConfigurationError{Key: "cache.backend", Err: fmt.Errorf("unknown backend %q", cfg.Cache.Backend)}
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Window <= 0 {
			return &common.ConfigurationError{Key: "rate_limit.window", Err: fmt.Errorf("must be positive")}
		}
		switch cfg.RateLimit.Backend {
		case "memory":
			if cfg.RateLimit.MaxCallers <= 0 {
				return &common.ConfigurationError{Key: "rate_limit.max_callers", Err: fmt.Errorf("must be positive")}
			}
		case "redis":
			if !cfg.RedisEnabled() {
				return &common.ConfigurationError{Key: "redis.url", Err: fmt.Errorf("required by redis rate limit backend")}
			}
		default:
			return &common.ConfigurationError{Key: "rate_limit.backend", Err: fmt.Errorf("unknown backend %q", cfg.RateLimit.Backend)}
		}
	}

	if cfg.ImageGen.Enabled && cfg.Storage.Bucket == "" {
		return &common.ConfigurationError{Key: "storage.bucket", Err: fmt.Errorf("required when image generation is enabled")}
	}

	if cfg.DatabaseEnabled() && cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return &common.ConfigurationError{Key: "database.driver", Err: fmt.Errorf("unsupported driver %q", cfg.Database.Driver)}
	}

	if cfg.Image.MaxFetchBytes <= 0 || cfg.Image.MaxProbeBytes <= 0 || cfg.Image.MaxDimension <= 0 {
		return &common.ConfigurationError{Key: "image", Err: fmt.Errorf("size limits must be positive")}
	}
	if cfg.Image.PlaceholderURL == "" {
		return &common.ConfigurationError{Key: "image.placeholder_url"}
	}

	return nil
}
