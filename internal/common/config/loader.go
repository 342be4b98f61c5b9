package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like PROVIDERS_GOOGLE_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when not present.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from a few locations so binaries and tests can run
// from different directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig picks up credentials directly from the environment when
// they are still empty after expansion.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Providers.Foursquare.APIKey == "" {
		if val := os.Getenv("FOURSQUARE_API_KEY"); val != "" {
			cfg.Providers.Foursquare.APIKey = val
		}
	}
	if cfg.Providers.Google.APIKey == "" {
		if val := os.Getenv("GOOGLE_PLACES_API_KEY"); val != "" {
			cfg.Providers.Google.APIKey = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// ApplyDefaults fills every setting that has a sane default so a near-empty
// config file still yields a runnable service. Exported so tests can build
// configs the same way the loader does.
func ApplyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "restaurant-discovery"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}

	if len(cfg.Providers.Priority) == 0 {
		cfg.Providers.Priority = []string{"osm", "foursquare", "google", "static"}
	}
	if cfg.Providers.TimeoutMs == 0 {
		cfg.Providers.TimeoutMs = 8000
	}
	if cfg.Providers.DefaultRadius == 0 {
		cfg.Providers.DefaultRadius = 5000
	}
	if cfg.Providers.MaxResults == 0 {
		cfg.Providers.MaxResults = 50
	}
	if cfg.Providers.OSM.BaseURL == "" {
		cfg.Providers.OSM.BaseURL = "https://overpass-api.de/api/interpreter"
	}
	if cfg.Providers.Foursquare.BaseURL == "" {
		cfg.Providers.Foursquare.BaseURL = "https://api.foursquare.com/v3"
	}
	if cfg.Providers.Google.BaseURL == "" {
		cfg.Providers.Google.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if cfg.Providers.Google.PhotoBaseURL == "" {
		cfg.Providers.Google.PhotoBaseURL = "https://maps.googleapis.com/maps/api/place/photo"
	}
	if cfg.Providers.Google.MaxPages == 0 {
		cfg.Providers.Google.MaxPages = 3
	}
	if cfg.Providers.Google.PageDelayMs == 0 {
		cfg.Providers.Google.PageDelayMs = 2000
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8081"
	}
	if cfg.Backend.TimeoutMs == 0 {
		cfg.Backend.TimeoutMs = 10000
	}

	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	known := map[string]bool{"osm": true, "foursquare": true, "google": true, "static": true}
	for _, name := range cfg.Providers.Priority {
		if !known[name] {
			return fmt.Errorf("unknown provider %q in providers.priority", name)
		}
	}
	return nil
}
