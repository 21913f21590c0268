// internal/common/config/loader.go
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

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
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

	// Environment-specific overlay, e.g. config.production.yaml.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root so
// the binary behaves the same whether started from the repo root or a
// subdirectory (tests).
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
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
		if strVal, ok := v.Get(key).(string); ok {
			if strings.Contains(strVal, "${") {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mealbell-dispatcher"
	}
	if cfg.Feed.Stream == "" {
		cfg.Feed.Stream = "changefeed:meals"
	}
	if cfg.Feed.Group == "" {
		cfg.Feed.Group = "mealbell"
	}
	if cfg.Feed.Consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "dispatcher-1"
		}
		cfg.Feed.Consumer = host
	}
	if cfg.Feed.BatchSize <= 0 {
		cfg.Feed.BatchSize = 16
	}
	if cfg.Feed.BlockMs <= 0 {
		cfg.Feed.BlockMs = 5000
	}
	if cfg.Feed.ClaimIdleMs <= 0 {
		cfg.Feed.ClaimIdleMs = 30000
	}
	if cfg.Database.Postgres.MaxConnections <= 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle <= 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Notifications.Geofence.RadiusKm <= 0 {
		cfg.Notifications.Geofence.RadiusKm = 100
	}
	// PoC kitchen location, overridden per deployment.
	if cfg.Notifications.Geofence.ReferenceLat == 0 && cfg.Notifications.Geofence.ReferenceLng == 0 {
		cfg.Notifications.Geofence.ReferenceLat = 19.1
		cfg.Notifications.Geofence.ReferenceLng = 72.8
	}
	if cfg.Notifications.Dedupe.TTLHrs <= 0 {
		cfg.Notifications.Dedupe.TTLHrs = 24
	}
	if cfg.Audit.Index == "" {
		cfg.Audit.Index = "meal-dispatches"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Port <= 0 {
		cfg.Metrics.Port = 8080
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Notifications.Push.AWSRegion == "" {
		return fmt.Errorf("notifications.push.aws_region is required")
	}
	if cfg.Alerts.Enabled && (cfg.Alerts.FromEmail == "" || cfg.Alerts.ToEmail == "") {
		return fmt.Errorf("alerts.from_email and alerts.to_email are required when alerting is enabled")
	}
	if cfg.Audit.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when audit is enabled")
	}
	return nil
}
