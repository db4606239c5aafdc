package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP            HTTPConfig            `yaml:"http"`
	Auth            AuthConfig            `yaml:"auth"`
	CarbonAPI       CarbonAPIConfig       `yaml:"carbonApi"`
	Activities      ActivitiesConfig      `yaml:"activities"`
	Analytics       AnalyticsConfig       `yaml:"analytics"`
	LLM             LLMConfig             `yaml:"llm"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Export          ExportConfig          `yaml:"export"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig controls the bearer token middleware.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwtSecret"`
}

// CarbonAPIConfig points at the platform's internal summary API.
type CarbonAPIConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// ActivitiesConfig selects the activity source. With a DSN set the service
// reads the Postgres replica directly; otherwise it falls back to the API.
type ActivitiesConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// AnalyticsConfig holds aggregation defaults.
type AnalyticsConfig struct {
	TopCategories int `yaml:"topCategories"`
	TopEmitters   int `yaml:"topEmitters"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// RecommendationsConfig controls the cached recommendation flow.
type RecommendationsConfig struct {
	Prompt          string        `yaml:"prompt"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	MaxPromptTokens int           `yaml:"maxPromptTokens"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ExportConfig configures the optional S3 export archive.
type ExportConfig struct {
	S3Endpoint  string `yaml:"s3Endpoint"`
	S3AccessKey string `yaml:"s3AccessKey"`
	S3SecretKey string `yaml:"s3SecretKey"`
	S3Bucket    string `yaml:"s3Bucket"`
	S3Region    string `yaml:"s3Region"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTrue(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = isTrue(v)
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CARBON_API_BASE_URL"); v != "" {
		cfg.CarbonAPI.BaseURL = v
	}
	if v := os.Getenv("CARBON_API_KEY"); v != "" {
		cfg.CarbonAPI.APIKey = v
	}
	if v := os.Getenv("CARBON_API_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.CarbonAPI.Timeout = parsed
		}
	}
	if v := os.Getenv("ACTIVITIES_POSTGRES_DSN"); v != "" {
		cfg.Activities.Postgres.DSN = v
	}
	if v := os.Getenv("ACTIVITIES_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Activities.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("ANALYTICS_TOP_CATEGORIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.TopCategories = parsed
		}
	}
	if v := os.Getenv("ANALYTICS_TOP_EMITTERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.TopEmitters = parsed
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("REC_PROMPT"); v != "" {
		cfg.Recommendations.Prompt = v
	}
	if v := os.Getenv("REC_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Recommendations.CacheTTL = parsed
		}
	}
	if v := os.Getenv("REC_MAX_PROMPT_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Recommendations.MaxPromptTokens = parsed
		}
	}
	if v := os.Getenv("REC_REDIS_ENABLED"); v != "" {
		cfg.Recommendations.Redis.Enabled = isTrue(v)
	}
	if v := os.Getenv("REC_REDIS_ADDR"); v != "" {
		cfg.Recommendations.Redis.Addr = v
	}
	if v := os.Getenv("EXPORT_S3_ENDPOINT"); v != "" {
		cfg.Export.S3Endpoint = v
	}
	if v := os.Getenv("EXPORT_S3_ACCESS_KEY"); v != "" {
		cfg.Export.S3AccessKey = v
	}
	if v := os.Getenv("EXPORT_S3_SECRET_KEY"); v != "" {
		cfg.Export.S3SecretKey = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_REGION"); v != "" {
		cfg.Export.S3Region = v
	}
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		CarbonAPI: CarbonAPIConfig{
			BaseURL: "http://carbon-platform.internal",
			Timeout: 10 * time.Second,
		},
		Analytics: AnalyticsConfig{
			TopCategories: 5,
			TopEmitters:   5,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		Recommendations: RecommendationsConfig{
			Prompt:          "You are a corporate carbon reduction advisor. Study the tenant's emissions profile and suggest 3 to 6 concrete reduction actions ranked by impact. Be specific to the dominant categories.",
			CacheTTL:        24 * time.Hour,
			MaxPromptTokens: 2000,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwtSecret cannot be empty when auth is enabled")
	}
	if c.CarbonAPI.BaseURL == "" {
		return errors.New("carbonApi.baseUrl cannot be empty")
	}
	if c.CarbonAPI.Timeout <= 0 {
		return errors.New("carbonApi.timeout must be positive")
	}
	if c.Analytics.TopCategories <= 0 {
		return errors.New("analytics.topCategories must be positive")
	}
	if c.Analytics.TopEmitters <= 0 {
		return errors.New("analytics.topEmitters must be positive")
	}
	if c.Recommendations.CacheTTL < 0 {
		return errors.New("recommendations.cacheTtl cannot be negative")
	}
	if c.Recommendations.Redis.Enabled && strings.TrimSpace(c.Recommendations.Redis.Addr) == "" {
		return errors.New("recommendations.redis.addr cannot be empty when redis cache is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
