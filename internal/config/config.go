// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

// Package config holds application configuration, loaded through viper
// from flags, environment, and the YAML config file.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host              string
	Port              string
	AuthUsername      string
	AuthPassword      string
	RequestsPerMinute int
}

// Config holds application configuration.
type Config struct {
	LibraryRoot  string
	InboxDir     string
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)
	DryRun       bool

	// Resolution
	MatchThreshold float64
	AudibleRegion  string
	AIAll          bool
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string

	// Library audit
	MediaServerURL   string
	MediaServerToken string

	WatchDebounce time.Duration

	Server ServerConfig
}

var AppConfig Config

// InitConfig initializes the application configuration from viper.
func InitConfig() {
	// Set defaults
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("match_threshold", 65.0)
	viper.SetDefault("audible_region", "com")
	viper.SetDefault("openai_model", "gpt-4o-mini")
	viper.SetDefault("watch_debounce", "5s")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.requests_per_minute", 0)

	AppConfig = Config{
		LibraryRoot:  viper.GetString("library_root"),
		InboxDir:     viper.GetString("inbox_dir"),
		DatabasePath: viper.GetString("database_path"),
		DatabaseType: viper.GetString("database_type"),
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),
		DryRun:       viper.GetBool("dry_run"),

		MatchThreshold: viper.GetFloat64("match_threshold"),
		AudibleRegion:  viper.GetString("audible_region"),
		AIAll:          viper.GetBool("ai_all"),
		OpenAIAPIKey:   viper.GetString("openai_api_key"),
		OpenAIBaseURL:  viper.GetString("openai_base_url"),
		OpenAIModel:    viper.GetString("openai_model"),

		MediaServerURL:   viper.GetString("media_server_url"),
		MediaServerToken: viper.GetString("media_server_token"),

		WatchDebounce: viper.GetDuration("watch_debounce"),

		Server: ServerConfig{
			Host:              viper.GetString("server.host"),
			Port:              viper.GetString("server.port"),
			AuthUsername:      viper.GetString("server.auth_username"),
			AuthPassword:      viper.GetString("server.auth_password"),
			RequestsPerMinute: viper.GetInt("server.requests_per_minute"),
		},
	}

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}
}

// UseSQLite reports whether the SQLite backend is both selected and
// explicitly enabled.
func (c Config) UseSQLite() bool {
	return c.DatabaseType == "sqlite" && c.EnableSQLite
}
