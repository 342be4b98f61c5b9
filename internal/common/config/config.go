package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// ProvidersConfig holds the ordered fallback chain and per-provider settings.
//
// Priority is walked in order by the orchestrator; a provider whose
// credentials are missing is simply removed from the chain, never an error.
type ProvidersConfig struct {
	Priority      []string         `mapstructure:"priority"`
	TimeoutMs     int              `mapstructure:"timeout_ms"`
	DefaultRadius float64          `mapstructure:"default_radius_meters"`
	MaxResults    int              `mapstructure:"max_results"`
	OSM           OSMConfig        `mapstructure:"osm"`
	Foursquare    FoursquareConfig `mapstructure:"foursquare"`
	Google        GoogleConfig     `mapstructure:"google"`
}

// Timeout returns the per-provider-call deadline.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

type OSMConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type FoursquareConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type GoogleConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	PhotoBaseURL string `mapstructure:"photo_base_url"`
	APIKey       string `mapstructure:"api_key"`
	MaxPages     int    `mapstructure:"max_pages"`
	PageDelayMs  int    `mapstructure:"page_delay_ms"`
}

// PageDelay returns the pause between paginated requests. The provider
// requires at least 2 seconds between continuation-token fetches.
func (g GoogleConfig) PageDelay() time.Duration {
	return time.Duration(g.PageDelayMs) * time.Millisecond
}

// BackendConfig points the reconciliation client at the persistence
// collaborator's get-or-create endpoint.
type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the resolution-cache backend. "memory" keeps the
// session-scoped mutex map; "redis" shares resolutions across instances.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
