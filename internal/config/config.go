package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kitmed/catalogsync/pkg/db"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	// Import run inputs.
	ImportFile     string
	MappingFile    string
	PrimaryLocale  string
	Locales        []string
	UpdateExisting bool

	// Media ingestion.
	MediaDir           string
	DownloadTimeout    time.Duration
	DownloadDelay      time.Duration
	MaxFileSize        int64
	MaxImagesPerRecord int
	UserAgent          string

	// Run policy.
	MaxConsecutiveStoreErrors int

	// Consolidation.
	ConsolidateStrategy string
	ConsolidateExecute  bool

	DB db.Config
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "catalogsync"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		ImportFile:     getenv("IMPORT_FILE", ""),
		MappingFile:    getenv("MAPPING_FILE", "mappings.yaml"),
		PrimaryLocale:  getenv("PRIMARY_LOCALE", "fr"),
		Locales:        splitList(getenv("LOCALES", "fr,en")),
		UpdateExisting: getenvBool("UPDATE_EXISTING", true),

		MediaDir:           getenv("MEDIA_DIR", "uploads"),
		DownloadTimeout:    getenvDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		DownloadDelay:      getenvDuration("DOWNLOAD_DELAY", 500*time.Millisecond),
		MaxFileSize:        getenvInt64("MAX_FILE_SIZE", 10*1024*1024),
		MaxImagesPerRecord: int(getenvInt64("MAX_IMAGES_PER_RECORD", 5)),
		UserAgent:          getenv("DOWNLOAD_USER_AGENT", "catalogsync/1.0 (catalog media fetcher)"),

		MaxConsecutiveStoreErrors: int(getenvInt64("MAX_CONSECUTIVE_STORE_ERRORS", 5)),

		ConsolidateStrategy: getenv("CONSOLIDATE_STRATEGY", "reference"),
		ConsolidateExecute:  getenvBool("CONSOLIDATE_EXECUTE", false),

		DB: db.Config{
			Type:     getenv("DATABASE_TYPE", "postgres"),
			Host:     getenv("DATABASE_HOST", "localhost"),
			Port:     getenv("DATABASE_PORT", "5432"),
			Name:     getenv("DATABASE_NAME", "kitmed"),
			User:     getenv("DATABASE_USER", "postgres"),
			Password: getenv("DATABASE_PASSWORD", ""),
			SSLMode:  getenv("DATABASE_SSLMODE", "disable"),
		},
	}

	return cfg
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
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
