// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cepcode/backend/internal/domain"
)

// Config holds all configuration values for the API server and the cepctl CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required by the API server.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	ViaCEP ViaCEPConfig
	Redis  RedisConfig
	Stats  StatsConfig

	// BarcodeMaxAttempts bounds the generate-check-retry loop for new identifiers.
	BarcodeMaxAttempts int

	// BarcodeFormat is the symbology recorded on new barcodes. Defaults to CODE128.
	BarcodeFormat string

	// StrictRegion makes product creation reject states with no region mapping
	// instead of falling back to the default region.
	StrictRegion bool
}

// ViaCEPConfig configures the external address lookup client.
type ViaCEPConfig struct {
	// BaseURL is the service root; the client appends /ws/{cep}/json/.
	BaseURL string
	Timeout time.Duration

	// RPS and Burst feed the client-side rate limiter. RPS <= 0 disables it.
	RPS   float64
	Burst int
}

// RedisConfig configures the optional resolution-stats store.
// An empty Addr keeps stats in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StatsConfig controls how resolution counters are kept.
type StatsConfig struct {
	Prefix string
	TTL    time.Duration
}

// Load reads configuration for the API server. It returns an error listing any
// required variables that are not set and any values that fail to parse.
func Load() (Config, error) {
	cfg, problems := load()

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		problems = append([]string{"required environment variables not set: " + strings.Join(missing, ", ")}, problems...)
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// LoadOptional is Load without the DATABASE_URL requirement. The cepctl CLI uses it.
func LoadOptional() (Config, error) {
	cfg, problems := load()
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func load() (Config, []string) {
	p := &parser{}
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes: p.getInt64("MAX_BODY_BYTES", 1<<20),
		ViaCEP: ViaCEPConfig{
			BaseURL: strings.TrimRight(getEnv("VIACEP_URL", "https://viacep.com.br"), "/"),
			Timeout: p.getDuration("VIACEP_TIMEOUT", 10*time.Second),
			RPS:     p.getFloat("VIACEP_RPS", 5),
			Burst:   p.getInt("VIACEP_BURST", 5),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.getInt("REDIS_DB", 0),
		},
		Stats: StatsConfig{
			Prefix: getEnv("STATS_PREFIX", "cepcode:stats"),
			TTL:    p.getDuration("STATS_TTL", 7*24*time.Hour),
		},
		BarcodeMaxAttempts: p.getInt("BARCODE_MAX_ATTEMPTS", 10),
		BarcodeFormat:      strings.ToUpper(getEnv("BARCODE_FORMAT", domain.DefaultBarcodeFormat)),
		StrictRegion:       p.getBool("STRICT_REGION", false),
	}

	if cfg.BarcodeMaxAttempts < 1 {
		p.fail("BARCODE_MAX_ATTEMPTS", "must be at least 1")
	}
	if cfg.MaxBodyBytes < 1 {
		p.fail("MAX_BODY_BYTES", "must be positive")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		p.fail("LOG_LEVEL", "must be one of debug, info, warn, error")
	}

	return cfg, p.problems
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser collects parse failures so Load can report all of them at once.
type parser struct {
	problems []string
}

func (p *parser) fail(key, msg string) {
	p.problems = append(p.problems, fmt.Sprintf("%s %s", key, msg))
}

func (p *parser) getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, "must be an integer")
		return fallback
	}
	return n
}

func (p *parser) getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, "must be an integer")
		return fallback
	}
	return n
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, "must be a number")
		return fallback
	}
	return f
}

func (p *parser) getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, "must be a boolean")
		return fallback
	}
	return b
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, "must be a duration such as 10s or 5m")
		return fallback
	}
	return d
}
