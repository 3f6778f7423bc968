package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string    `json:"serverAddress"`
	DatabasePath  string    `json:"databasePath"`
	DatabaseURL   string    `json:"databaseUrl"`
	Environment   string    `json:"environment"`
	SentryDSN     string    `json:"sentryDsn"`
	Metrics       Metrics   `json:"metrics"`
	Sync          Sync      `json:"sync"`
	Sanitize      Sanitize  `json:"sanitize"`
	Presence      Presence  `json:"presence"`
	Websocket     Websocket `json:"websocket"`
}

// Sync configuration for the ingestion and read paths
type Sync struct {
	MaxBatchSize       int      `json:"maxBatchSize"`
	DefaultPageSize    int      `json:"defaultPageSize"`
	MaxRecordAgeDays   int      `json:"maxRecordAgeDays"`
	FutureGraceMinutes int      `json:"futureGraceMinutes"`
	SupportedDataTypes []string `json:"supportedDataTypes"`
	// TimeoutSeconds is accepted from legacy configs and surfaced in the
	// startup log, but nothing enforces it yet.
	// TODO: enforce per-request sync deadlines from this value.
	TimeoutSeconds int `json:"timeoutSeconds"`
}

// Sanitize caps for client-supplied text and metadata documents
type Sanitize struct {
	MaxMetadataDepth int `json:"maxMetadataDepth"`
	MaxStringLength  int `json:"maxStringLength"`
	MaxMapKeys       int `json:"maxMapKeys"`
	MaxListLength    int `json:"maxListLength"`
}

// Presence configuration for the connected-device registry
type Presence struct {
	TTLMinutes   int `json:"ttlMinutes"`
	SweepMinutes int `json:"sweepMinutes"`
}

// Websocket configuration
type Websocket struct {
	Enabled bool `json:"enabled"`
}

// Metrics configuration
type Metrics struct {
	PrometheusEnabled bool `json:"prometheusEnabled"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Development reports whether destructive admin operations are allowed.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// MaxRecordAge is the oldest capture time accepted at ingestion.
func (c *Config) MaxRecordAge() time.Duration {
	return time.Duration(c.Sync.MaxRecordAgeDays) * 24 * time.Hour
}

// FutureGrace is the clock-skew allowance for capture times ahead of now.
func (c *Config) FutureGrace() time.Duration {
	return time.Duration(c.Sync.FutureGraceMinutes) * time.Minute
}

// PresenceTTL is how long a device counts as connected after its last touch.
func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.Presence.TTLMinutes) * time.Minute
}

// PresenceSweep is the interval between presence eviction sweeps.
func (c *Config) PresenceSweep() time.Duration {
	return time.Duration(c.Presence.SweepMinutes) * time.Minute
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "vitalsync.db",
		Environment:   "production",
		Metrics: Metrics{
			PrometheusEnabled: true,
		},
		Sync: Sync{
			MaxBatchSize:       500,
			DefaultPageSize:    100,
			MaxRecordAgeDays:   30,
			FutureGraceMinutes: 5,
			TimeoutSeconds:     30,
			SupportedDataTypes: []string{
				"heart_rate", "steps", "calories", "distance", "sleep",
				"blood_pressure", "blood_oxygen", "body_temperature",
				"location", "workout",
			},
		},
		Sanitize: Sanitize{
			MaxMetadataDepth: 5,
			MaxStringLength:  512,
			MaxMapKeys:       32,
			MaxListLength:    64,
		},
		Presence: Presence{
			TTLMinutes:   5,
			SweepMinutes: 1,
		},
		Websocket: Websocket{
			Enabled: true,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.SentryDSN = dsn
	}
	if enabled := os.Getenv("PROMETHEUS_ENABLED"); enabled != "" {
		cfg.Metrics.PrometheusEnabled = enabled == "true" || enabled == "1"
	}
	if enabled := os.Getenv("WEBSOCKET_ENABLED"); enabled != "" {
		cfg.Websocket.Enabled = enabled == "true" || enabled == "1"
	}

	// Sync tuning
	if batch := os.Getenv("SYNC_MAX_BATCH_SIZE"); batch != "" {
		if n, err := strconv.Atoi(batch); err == nil && n > 0 {
			cfg.Sync.MaxBatchSize = n
		}
	}
	if age := os.Getenv("SYNC_MAX_RECORD_AGE_DAYS"); age != "" {
		if days, err := strconv.Atoi(age); err == nil && days > 0 {
			cfg.Sync.MaxRecordAgeDays = days
		}
	}
	if types := os.Getenv("SYNC_SUPPORTED_DATA_TYPES"); types != "" {
		var parsed []string
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				parsed = append(parsed, t)
			}
		}
		if len(parsed) > 0 {
			cfg.Sync.SupportedDataTypes = parsed
		}
	}
	if ttl := os.Getenv("PRESENCE_TTL_MINUTES"); ttl != "" {
		if minutes, err := strconv.Atoi(ttl); err == nil && minutes > 0 {
			cfg.Presence.TTLMinutes = minutes
		}
	}

	return cfg, nil
}
