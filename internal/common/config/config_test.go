package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "mealbell",
		User:     "mealbell",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=mealbell password=secret dbname=mealbell sslmode=disable",
		cfg.GetDSN(),
	)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "mealbell-dispatcher", cfg.App.Name)
	assert.Equal(t, "changefeed:meals", cfg.Feed.Stream)
	assert.Equal(t, "mealbell", cfg.Feed.Group)
	assert.NotEmpty(t, cfg.Feed.Consumer)
	assert.Equal(t, 16, cfg.Feed.BatchSize)
	assert.Equal(t, 5000, cfg.Feed.BlockMs)
	assert.Equal(t, float64(100), cfg.Notifications.Geofence.RadiusKm)
	assert.Equal(t, 19.1, cfg.Notifications.Geofence.ReferenceLat)
	assert.Equal(t, 72.8, cfg.Notifications.Geofence.ReferenceLng)
	assert.Equal(t, 24, cfg.Notifications.Dedupe.TTLHrs)
	assert.Equal(t, "meal-dispatches", cfg.Audit.Index)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Metrics.Port)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Feed.Stream = "changefeed:custom"
	cfg.Notifications.Geofence.RadiusKm = 25
	cfg.Notifications.Geofence.ReferenceLat = 52.52
	cfg.Notifications.Geofence.ReferenceLng = 13.4

	applyDefaults(cfg)

	assert.Equal(t, "changefeed:custom", cfg.Feed.Stream)
	assert.Equal(t, float64(25), cfg.Notifications.Geofence.RadiusKm)
	assert.Equal(t, 52.52, cfg.Notifications.Geofence.ReferenceLat)
	assert.Equal(t, 13.4, cfg.Notifications.Geofence.ReferenceLng)
}

func validTestConfig() *Config {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Notifications.Push.AWSRegion = "ap-south-1"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(validTestConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing postgres host",
			mutate: func(c *Config) { c.Database.Postgres.Host = "" },
			want:   "database.postgres.host",
		},
		{
			name:   "missing redis address",
			mutate: func(c *Config) { c.Database.Redis.Address = "" },
			want:   "database.redis.address",
		},
		{
			name:   "missing push region",
			mutate: func(c *Config) { c.Notifications.Push.AWSRegion = "" },
			want:   "notifications.push.aws_region",
		},
		{
			name:   "alerting enabled without addresses",
			mutate: func(c *Config) { c.Alerts.Enabled = true },
			want:   "alerts.from_email",
		},
		{
			name:   "audit enabled without elasticsearch",
			mutate: func(c *Config) { c.Audit.Enabled = true },
			want:   "database.elasticsearch.addresses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
