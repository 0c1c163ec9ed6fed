package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vrlearn.app/beacon/core/db"
)

type Config struct {
	Env  string
	Port string

	OTel      OTelConfig
	ArangoDB  ArangoDBConfig
	Typesense TypesenseConfig
	RankerLLM LLMConfig
	Cache     CacheConfig
	DB        db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type ArangoDBConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string

	// MinSimilarity is the floor below which a semantic hit is discarded.
	MinSimilarity float64
}

type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Load loads configuration from environment variables. In development a .env
// file is read first if present.
func Load() (Config, error) {
	if getEnv("BEACON_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:  getEnv("BEACON_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "beacon"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		ArangoDB: ArangoDBConfig{
			URL:      getEnv("ARANGO_URL", "http://localhost:8529"),
			Username: getEnv("ARANGO_USERNAME", "root"),
			Password: getEnv("ARANGO_PASSWORD", ""),
			Database: getEnv("ARANGO_DATABASE", "beacon"),
		},
		Typesense: TypesenseConfig{
			URL:           getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:        getEnv("TYPESENSE_API_KEY", ""),
			Collection:    getEnv("TYPESENSE_COLLECTION", "skills"),
			MinSimilarity: getEnvFloat("TYPESENSE_MIN_SIMILARITY", 0.35),
		},
		RankerLLM: LLMConfig{
			APIKey:    getEnv("RANKER_LLM_API_KEY", ""),
			BaseURL:   getEnv("RANKER_LLM_BASE_URL", ""),
			Model:     getEnv("RANKER_LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("RANKER_LLM_MAX_TOKENS", 1024),
			Timeout:   getEnvDuration("RANKER_LLM_TIMEOUT", 20*time.Second),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c TypesenseConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c CacheConfig) Enabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
