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
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Matching MatchingConfig `yaml:"matching"`
	Engine   EngineConfig   `yaml:"engine"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	Environment  string          `yaml:"environment"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig secures the inbound endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearerToken"`
	JWTSecret   string `yaml:"jwtSecret"`
}

// MatchingConfig controls scoring, ranking and pagination behavior.
type MatchingConfig struct {
	ReductionMethod  string        `yaml:"reductionMethod"`
	MeanPlusWeightN  int           `yaml:"meanPlusWeightN"`
	PageSize         int           `yaml:"pageSize"`
	ToolsTopMatches  int           `yaml:"toolsTopMatches"`
	ContextActive    bool          `yaml:"contextActive"`
	ContextList      []string      `yaml:"contextList"`
	EngineTimeout    time.Duration `yaml:"engineTimeout"`
	CorpusTTL        time.Duration `yaml:"corpusTtl"`
	ContextTTL       time.Duration `yaml:"contextTtl"`
	ResultCacheTTL   time.Duration `yaml:"resultCacheTtl"`
}

// EngineConfig points at the external scoring engine.
type EngineConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the result cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ArchiveConfig configures the inbound-history export store.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
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
	if v := os.Getenv("DEPLOYMENT_ENVIRONMENT"); v != "" {
		cfg.HTTP.Environment = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
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
	if v := os.Getenv("INBOUND_CHECK_TOKEN"); v != "" {
		cfg.Auth.BearerToken = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MATCHING_REDUCTION_METHOD"); v != "" {
		cfg.Matching.ReductionMethod = v
	}
	if v := os.Getenv("MATCHING_MEAN_PLUS_WEIGHT_N"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Matching.MeanPlusWeightN = parsed
		}
	}
	if v := os.Getenv("MATCHING_PAGE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Matching.PageSize = parsed
		}
	}
	if v := os.Getenv("MATCHING_TOOLS_TOP_MATCHES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Matching.ToolsTopMatches = parsed
		}
	}
	if v := os.Getenv("MATCHING_CONTEXT_ACTIVE"); v != "" {
		cfg.Matching.ContextActive = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MATCHING_CONTEXT_LIST"); v != "" {
		cfg.Matching.ContextList = splitCSV(v)
	}
	if v := os.Getenv("MATCHING_ENGINE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Matching.EngineTimeout = parsed
		}
	}
	if v := os.Getenv("MATCHING_CORPUS_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Matching.CorpusTTL = parsed
		}
	}
	if v := os.Getenv("MATCHING_CONTEXT_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Matching.ContextTTL = parsed
		}
	}
	if v := os.Getenv("MATCHING_RESULT_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Matching.ResultCacheTTL = parsed
		}
	}
	if v := os.Getenv("ENGINE_BASE_URL"); v != "" {
		cfg.Engine.BaseURL = v
	}
	if v := os.Getenv("ENGINE_TOKEN"); v != "" {
		cfg.Engine.Token = v
	}
	if v := os.Getenv("ENGINE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Engine.Timeout = parsed
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("ARCHIVE_REGION"); v != "" {
		cfg.Archive.Region = v
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":9902",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			Environment:  "development",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             40,
			},
		},
		Auth: AuthConfig{
			BearerToken: "testing-token",
		},
		Matching: MatchingConfig{
			ReductionMethod: "avg_min_mean",
			MeanPlusWeightN: 3,
			PageSize:        5,
			ToolsTopMatches: 3,
			ContextActive:   false,
			ContextList:     nil,
			EngineTimeout:   10 * time.Second,
			CorpusTTL:       24 * time.Hour,
			ContextTTL:      24 * time.Hour,
			ResultCacheTTL:  time.Hour,
		},
		Engine: EngineConfig{
			Timeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN:      "",
			MaxConns: 4,
			MinConns: 0,
		},
		Valkey: ValkeyConfig{
			Enabled: false,
			Addr:    "",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Region:  "auto",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Auth.BearerToken) == "" && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.bearerToken or auth.jwtSecret must be set")
	}
	if c.Matching.ReductionMethod == "" {
		return errors.New("matching.reductionMethod cannot be empty")
	}
	if c.Matching.MeanPlusWeightN < 0 {
		return errors.New("matching.meanPlusWeightN cannot be negative")
	}
	if c.Matching.PageSize <= 0 {
		return errors.New("matching.pageSize must be positive")
	}
	if c.Matching.ToolsTopMatches <= 0 {
		return errors.New("matching.toolsTopMatches must be positive")
	}
	if c.Matching.ContextActive && len(c.Matching.ContextList) == 0 {
		return errors.New("matching.contextList cannot be empty when contexts are active")
	}
	if c.Matching.EngineTimeout <= 0 {
		return errors.New("matching.engineTimeout must be positive")
	}
	if c.Matching.CorpusTTL < 0 {
		return errors.New("matching.corpusTtl cannot be negative")
	}
	if c.Matching.ContextTTL < 0 {
		return errors.New("matching.contextTtl cannot be negative")
	}
	if c.Matching.ResultCacheTTL < 0 {
		return errors.New("matching.resultCacheTtl cannot be negative")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when the result cache is enabled")
	}
	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.Endpoint) == "" {
			return errors.New("archive.endpoint cannot be empty when the archive is enabled")
		}
		if strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.bucket cannot be empty when the archive is enabled")
		}
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
