package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	NodeID      int64

	RunMigrations bool

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Search      SearchConfig
	Scheduler   SchedulerConfig
	MetricsPush MetricsPushConfig
}

// SearchConfig selects the similarity search collaborator.
type SearchConfig struct {
	Backend    string
	MeiliURL   string
	MeiliKey   string
	MeiliIndex string
}

// SchedulerConfig controls the batch normalization jobs.
type SchedulerConfig struct {
	Enabled     bool
	Interval    time.Duration
	BatchSize   int
	Workers     int
	EnabledJobs []string
}

// MetricsPushConfig selects where Prometheus metrics are pushed. An empty
// Exporter disables pushing.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

// DefaultSchedulerInterval is used when SCHEDULER_INTERVAL is unset or invalid.
const DefaultSchedulerInterval = time.Minute

// DefaultMetricsPushInterval is used when METRICS_PUSH_INTERVAL is unset or invalid.
const DefaultMetricsPushInterval = 30 * time.Second

const (
	SearchBackendPostgres    = "postgres"
	SearchBackendMemory      = "memory"
	SearchBackendMeilisearch = "meilisearch"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "pricewise"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		NodeID:            getenvInt64("NODE_ID", 1),
		RunMigrations:     getenvBool("RUN_MIGRATIONS", true),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pricewise"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		Search: SearchConfig{
			Backend:    normalizeBackend(getenv("SEARCH_BACKEND", SearchBackendPostgres)),
			MeiliURL:   strings.TrimSpace(getenv("MEILI_URL", "http://localhost:7700")),
			MeiliKey:   strings.TrimSpace(getenv("MEILI_API_KEY", "")),
			MeiliIndex: getenv("MEILI_INDEX", "approved_items"),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			Interval:    getenvDuration("SCHEDULER_INTERVAL", DefaultSchedulerInterval),
			BatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 500),
			Workers:     getenvInt("SCHEDULER_WORKERS", 4),
			EnabledJobs: getenvList("SCHEDULER_JOBS"),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: getenv("METRICS_PUSH_AUTH_TOKEN", ""),
			Interval:  getenvDuration("METRICS_PUSH_INTERVAL", DefaultMetricsPushInterval),
		},
	}

	return cfg
}

// LocksEnabled reports whether a redis address is configured.
func (c Config) LocksEnabled() bool {
	return c.RedisAddr != ""
}

func normalizeBackend(raw string) string {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case SearchBackendMemory, SearchBackendMeilisearch:
		return value
	default:
		return SearchBackendPostgres
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// getenvList splits a comma separated value, dropping blanks.
func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
