// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Feed          FeedConfig              `mapstructure:"feed"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Alerts        AlertConfig             `mapstructure:"alerts"`
	Audit         AuditConfig             `mapstructure:"audit"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// FeedConfig describes the Redis Streams change feed the dispatcher consumes.
type FeedConfig struct {
	Stream      string `mapstructure:"stream"`
	Group       string `mapstructure:"group"`
	Consumer    string `mapstructure:"consumer"`
	BatchSize   int    `mapstructure:"batch_size"`
	BlockMs     int    `mapstructure:"block_ms"`
	ClaimIdleMs int    `mapstructure:"claim_idle_ms"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
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

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// WorkerConfig holds the core settings applicable to every record worker.
type WorkerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds the dispatch decision settings.
type NotificationConfig struct {
	Geofence GeofenceConfig `mapstructure:"geofence"`
	Push     PushConfig     `mapstructure:"push"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
}

// GeofenceConfig fixes the deployment's reference location and radius. The
// reference point is configuration, never derived from recipients or meals.
type GeofenceConfig struct {
	ReferenceLat float64 `mapstructure:"reference_lat"`
	ReferenceLng float64 `mapstructure:"reference_lng"`
	RadiusKm     float64 `mapstructure:"radius_km"`
}

type PushConfig struct {
	AWSRegion string `mapstructure:"aws_region"`
}

// DedupeConfig guards against change-feed redelivery.
type DedupeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTLHrs  int  `mapstructure:"ttl_hours"`
}

// AlertConfig holds operator alerting settings (SES email).
type AlertConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
	FromEmail string `mapstructure:"from_email"`
	ToEmail   string `mapstructure:"to_email"`
}

// AuditConfig holds dispatch-report indexing settings.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
