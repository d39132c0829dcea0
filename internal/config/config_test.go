package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10, cfg.DBPoolSize)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, int64(102400), cfg.BodyLimitBytes)
	assert.Equal(t, 30, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AuthRateWindow)
	assert.Empty(t, cfg.CORSOrigins())
}

func TestLoadFromEnvironment(t *testing.T) {
	setSecrets(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_POOL_SIZE", "4")
	t.Setenv("JWT_EXPIRES", "900")
	t.Setenv("JWT_REFRESH_EXPIRES", "12h")
	t.Setenv("CORS_ORIGIN", "https://app.example.com, https://admin.example.com")
	t.Setenv("AUTH_RATE_WINDOW", "1m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 4, cfg.DBPoolSize)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 12*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins())
	assert.Equal(t, time.Minute, cfg.AuthRateWindow)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFromDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=file-access\nJWT_REFRESH_SECRET=file-refresh\nPORT=4000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "file-access", cfg.JWTSecret)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secrets", map[string]string{"JWT_SECRET": "", "JWT_REFRESH_SECRET": ""}},
		{"shared secret", map[string]string{"JWT_SECRET": "same", "JWT_REFRESH_SECRET": "same"}},
		{"low bcrypt cost", map[string]string{"BCRYPT_COST": "4"}},
		{"empty pool", map[string]string{"DB_POOL_SIZE": "0"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"unknown gin mode", map[string]string{"GIN_MODE": "verbose"}},
		{"bad ttl", map[string]string{"JWT_EXPIRES": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSecrets(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "ge", DBPassword: "p@ss word", DBHost: "db", DBPort: "5432", DBName: "ge", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://ge:p%40ss%20word@db:5432/ge?sslmode=disable", cfg.DSN())

	cfg.DBPort = ""
	cfg.DBDriver = "mysql"
	cfg.DBPassword = "secret"
	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "ge:secret@tcp(db:3306)/ge?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")

	cfg.DatabaseURL = "ge:secret@tcp(mysql:3306)/ge"
	dsn = cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "ge:secret@tcp(mysql:3306)/ge?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")

	cfg.DBDriver = "postgres"
	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"15m", 15 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"3600", time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"", 0, true},
		{"0", 0, true},
		{"-5m", 0, true},
		{"xd", 0, true},
		{"later", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTTL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
