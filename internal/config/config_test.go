package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

var strongSecret = strings.Repeat("s", 40)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, DriverMemory, cfg.RevocationDriver)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "https://www.googleapis.com/oauth2/v3/certs", cfg.GoogleCertsURL)
	assert.Equal(t, 5.0, cfg.AuthRateLimitRPS)
	assert.Equal(t, 10, cfg.AuthRateLimitBurst)
}

func TestLoad_Development_AcceptsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
}

func TestLoad_NonDevelopmentRules(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr string
	}{
		{
			name:    "default secret",
			envs:    map[string]string{"ENVIRONMENT": "production", "GOOGLE_CLIENT_ID": "cid"},
			wantErr: "JWT_SECRET must be explicitly set",
		},
		{
			name:    "short secret",
			envs:    map[string]string{"ENVIRONMENT": "staging", "JWT_SECRET": "short", "GOOGLE_CLIENT_ID": "cid"},
			wantErr: "at least 32 characters",
		},
		{
			name:    "missing client id",
			envs:    map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": strongSecret},
			wantErr: "GOOGLE_CLIENT_ID must be set",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Production_Valid(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":      "production",
		"JWT_SECRET":       strongSecret,
		"GOOGLE_CLIENT_ID": "123.apps.googleusercontent.com",
		"STORE_DRIVER":     "postgres",
		"KAFKA_ENABLED":    "true",
		"KAFKA_BROKERS":    "k1:9092,k2:9092",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"port":       {"HTTP_PORT": "70000"},
		"store":      {"STORE_DRIVER": "mongo"},
		"revocation": {"REVOCATION_DRIVER": "memcached"},
		"expiry":     {"JWT_EXPIRY": "-1h"},
		"duration":   {"JWT_EXPIRY": "seven days"},
	}
	for name, envs := range tests {
		t.Run(name, func(t *testing.T) {
			setEnvs(t, envs)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Postgres(t *testing.T) {
	setEnvs(t, map[string]string{
		"DB_HOST":            "db.internal",
		"DB_MAX_CONNS":       "20",
		"DB_CONNECT_TIMEOUT": "3s",
	})
	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, int32(20), pg.MaxConns)
	assert.Equal(t, int32(0), pg.MinConns)
	assert.Equal(t, 30*time.Second, pg.MaxConnIdleTime)
	assert.Equal(t, 3*time.Second, pg.ConnectTimeout)
}

func TestConfig_Derived(t *testing.T) {
	setEnvs(t, map[string]string{
		"CORS_ALLOWED_ORIGINS": "chrome-extension://*,https://focusbadge.app",
		"REDIS_URL":            "redis://cache:6379/1",
		"OTEL_ENABLED":         "true",
		"OTEL_SAMPLE_RATE":     "0.5",
	})
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"chrome-extension://*", "https://focusbadge.app"}, cfg.CORS().AllowedOrigins)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis().URL)

	tr := cfg.Tracing("focusbadge")
	assert.True(t, tr.Enabled)
	assert.Equal(t, 0.5, tr.SampleRate)
	assert.Equal(t, "focusbadge", tr.ServiceName)

	rl := cfg.AuthRateLimit()
	assert.Equal(t, 5.0, rl.RPS)
	assert.Equal(t, 10, rl.Burst)
}
