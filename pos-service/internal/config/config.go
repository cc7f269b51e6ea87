package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	BackendBaseURL string
	// BackendTimeout of zero leaves backend calls unbounded.
	BackendTimeout time.Duration

	// StorageDriver selects the key-value backend: sqlite, redis, mongo, postgres or memory.
	StorageDriver string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
	PostgresDSN   string
	// MigrationsPath is the directory holding sqlite/ and postgres/ migrations.
	// A relative path is tried against the working directory, then against the
	// binary's directory.
	MigrationsPath string

	KafkaBrokers []string
	KafkaTopic   string

	DashboardDataPath string
	Currency          string
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	backendTimeout, err := getDuration("BACKEND_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		RequestTimeout:    requestTimeout,
		ShutdownTimeout:   shutdownTimeout,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		BackendBaseURL:    strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:3000"), "/"),
		BackendTimeout:    backendTimeout,
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
		SQLitePath:        getEnv("SQLITE_PATH", "./pos.db"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "posdb"),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=pos sslmode=disable"),
		MigrationsPath:    resolvePath(getEnv("MIGRATIONS_PATH", "./pos-service/internal/storage/migrations"), executableDir()),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "sales-completed"),
		DashboardDataPath: getEnv("DASHBOARD_DATA_PATH", "./dashboard_data.json"),
		Currency:          getEnv("CURRENCY", "MXN"),
	}

	switch cfg.StorageDriver {
	case "sqlite", "redis", "mongo", "postgres", "memory":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	// bare numbers are seconds
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}

func resolvePath(p, exeDir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	if exeDir != "" {
		alt := filepath.Join(exeDir, p)
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return p
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
