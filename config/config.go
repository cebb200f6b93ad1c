package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Repository root holding one folder per project
	RepoRoot string

	// Template copied when a new project is created
	TemplatePath string

	// App data directory (database, tokens)
	DataDir      string
	DatabasePath string

	// Filesystem watching
	WatchEnabled bool

	// Remote mirror
	MirrorProvider string // "drive", "oss" or "memory"
	MirrorRootName string

	DriveClientSecrets string
	DriveTokenFile     string

	OSSRegion          string
	OSSBucket          string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSPrefix          string

	// Debug settings
	LogLevel     string
	DBLogQueries bool
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	dataDir := getEnv("FLOWTRACK_DATA_DIR", "./data")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 12345),
		Host: getEnv("HOST", "127.0.0.1"),
		Env:  getEnv("ENV", "development"),

		// Repository
		RepoRoot:     getEnv("FLOWTRACK_ROOT", "./backups"),
		TemplatePath: getEnv("FLOWTRACK_TEMPLATE", "empty_template.flp"),
		WatchEnabled: getEnvBool("FLOWTRACK_WATCH", true),

		// Data
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, "flowtrack.sqlite"),

		// Mirror
		MirrorProvider: strings.ToLower(getEnv("MIRROR_PROVIDER", "drive")),
		MirrorRootName: getEnv("MIRROR_ROOT_NAME", "FLowTrack Projects"),

		DriveClientSecrets: getEnv("GDRIVE_CLIENT_SECRETS", "client_secrets.json"),
		DriveTokenFile:     getEnv("GDRIVE_TOKEN_FILE", filepath.Join(dataDir, "gdrive_token.json")),

		OSSRegion:          getEnv("OSS_REGION", ""),
		OSSBucket:          getEnv("OSS_BUCKET", ""),
		OSSAccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
		OSSAccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
		OSSPrefix:          getEnv("OSS_PREFIX", ""),

		// Debug
		LogLevel:     getEnv("LOG_LEVEL", ""),
		DBLogQueries: getEnv("DB_LOG_QUERIES", "") == "1",
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
