// Package config loads service configuration from environment variables
// with defaults, optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the crawler and ranking engine.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Crawler CrawlerConfig `yaml:"crawler"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds ranking engine parameters.
type EngineConfig struct {
	EntropyWeight       float64 `yaml:"entropyWeight"`
	Fragility           float64 `yaml:"fragility"`
	TrendDecay          float64 `yaml:"trendDecay"`
	UpdateFrequency     float64 `yaml:"updateFrequency"`
	UseQuantumScore     bool    `yaml:"useQuantumScore"`
	UsePersistenceScore bool    `yaml:"usePersistenceScore"`
	DenseDimension      int     `yaml:"denseDimension"`
	IngestQueueSize     int     `yaml:"ingestQueueSize"`
}

// CrawlerConfig holds crawl limits and politeness settings.
type CrawlerConfig struct {
	MaxPages              int           `yaml:"maxPages"`
	MaxDepth              int           `yaml:"maxDepth"`
	NumWorkers            int           `yaml:"numWorkers"`
	MaxConcurrentRequests int           `yaml:"maxConcurrentRequests"`
	CrawlDelay            time.Duration `yaml:"crawlDelay"`
	RequestTimeout        time.Duration `yaml:"requestTimeout"`
	RobotsCacheTTL        time.Duration `yaml:"robotsCacheTTL"`
	RespectNoindex        bool          `yaml:"respectNoindex"`
	RespectNofollow       bool          `yaml:"respectNofollow"`
	AllowedDomains        []string      `yaml:"allowedDomains"`
	SeedURLs              []string      `yaml:"seedURLs"`
	UserAgent             string        `yaml:"userAgent"`
}

// StorageConfig selects the crawled-content backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "file" or "badger"
	Path    string `yaml:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load builds a Config from environment variables with defaults.
func Load() *Config {
	return &Config{
		Engine: EngineConfig{
			EntropyWeight:       GetFloatEnv("ENGINE_ENTROPY_WEIGHT", 0.1),
			Fragility:           GetFloatEnv("ENGINE_FRAGILITY", 0.2),
			TrendDecay:          GetFloatEnv("ENGINE_TREND_DECAY", 0.05),
			UpdateFrequency:     GetFloatEnv("ENGINE_UPDATE_FREQUENCY", 0.1),
			UseQuantumScore:     GetBoolEnv("ENGINE_USE_QUANTUM_SCORE", true),
			UsePersistenceScore: GetBoolEnv("ENGINE_USE_PERSISTENCE_SCORE", true),
			DenseDimension:      GetIntEnv("ENGINE_DENSE_DIMENSION", 1000),
			IngestQueueSize:     GetIntEnv("ENGINE_INGEST_QUEUE_SIZE", 100),
		},
		Crawler: CrawlerConfig{
			MaxPages:              GetIntEnv("CRAWLER_MAX_PAGES", 10000),
			MaxDepth:              GetIntEnv("CRAWLER_MAX_DEPTH", 3),
			NumWorkers:            GetIntEnv("CRAWLER_NUM_WORKERS", 8),
			MaxConcurrentRequests: GetIntEnv("CRAWLER_MAX_CONCURRENT_REQUESTS", 20),
			CrawlDelay:            GetDurationEnv("CRAWLER_CRAWL_DELAY", 500*time.Millisecond),
			RequestTimeout:        GetDurationEnv("CRAWLER_REQUEST_TIMEOUT", 30*time.Second),
			RobotsCacheTTL:        GetDurationEnv("CRAWLER_ROBOTS_CACHE_TTL", 24*time.Hour),
			RespectNoindex:        GetBoolEnv("CRAWLER_RESPECT_NOINDEX", true),
			RespectNofollow:       GetBoolEnv("CRAWLER_RESPECT_NOFOLLOW", true),
			AllowedDomains:        GetListEnv("CRAWLER_ALLOWED_DOMAINS", nil),
			SeedURLs:              GetListEnv("CRAWLER_SEED_URLS", nil),
			UserAgent:             GetStringEnv("CRAWLER_USER_AGENT", "ResonantEngine-Crawler/1.0"),
		},
		Storage: StorageConfig{
			Backend: GetStringEnv("STORAGE_BACKEND", "file"),
			Path:    GetStringEnv("STORAGE_PATH", "./data"),
		},
		Logging: LoggingConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

// LoadFile overlays a YAML file onto the env-derived configuration.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the crawler or engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.DenseDimension <= 0 {
		return fmt.Errorf("engine.denseDimension must be positive, got %d", c.Engine.DenseDimension)
	}
	if c.Engine.IngestQueueSize <= 0 {
		return fmt.Errorf("engine.ingestQueueSize must be positive, got %d", c.Engine.IngestQueueSize)
	}
	if c.Crawler.NumWorkers <= 0 {
		return fmt.Errorf("crawler.numWorkers must be positive, got %d", c.Crawler.NumWorkers)
	}
	if c.Crawler.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("crawler.maxConcurrentRequests must be positive, got %d", c.Crawler.MaxConcurrentRequests)
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.maxDepth must not be negative, got %d", c.Crawler.MaxDepth)
	}
	switch c.Storage.Backend {
	case "file", "badger":
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"badger\", got %q", c.Storage.Backend)
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func GetListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
