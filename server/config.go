package server

import (
	"github.com/xiaoyuanzhu-com/flowtrack/config"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
	"github.com/xiaoyuanzhu-com/flowtrack/workers/reconcile"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure
	Port int
	Host string
	Env  string // "development" or "production"

	// Paths
	RepoRoot     string // Project folders - source of truth
	TemplatePath string // Copied into new projects
	DatabasePath string // Settings and sync history - rebuildable

	// FS settings
	WatchEnabled bool

	// Mirror
	MirrorRootName string
	Mirror         mirror.Client // Provider client, built by the caller

	// Debug settings
	LogLevel     string
	DBLogQueries bool
}

// NewConfig derives the server configuration from the application configuration
func NewConfig(app *config.Config, client mirror.Client) *Config {
	return &Config{
		Port:           app.Port,
		Host:           app.Host,
		Env:            app.Env,
		RepoRoot:       app.RepoRoot,
		TemplatePath:   app.TemplatePath,
		DatabasePath:   app.DatabasePath,
		WatchEnabled:   app.WatchEnabled,
		MirrorRootName: app.MirrorRootName,
		Mirror:         client,
		LogLevel:       app.LogLevel,
		DBLogQueries:   app.DBLogQueries,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:       c.DatabasePath,
		LogQueries: c.DBLogQueries,
	}
}

// ToFSConfig converts server config to repository service config
func (c *Config) ToFSConfig() fs.Config {
	return fs.Config{
		Root:         c.RepoRoot,
		WatchEnabled: c.WatchEnabled,
	}
}

// ToReconcileConfig converts server config to reconciliation engine config
func (c *Config) ToReconcileConfig() reconcile.Config {
	return reconcile.Config{
		RootName: c.MirrorRootName,
	}
}
