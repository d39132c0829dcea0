// Package config loads the service configuration from the environment.
//
// Values come from environment variables, optionally seeded from a .env file
// in the given directory. The result is validated once at startup and then
// passed by value to the components that need it.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	DBPoolSize  int    `mapstructure:"DB_POOL_SIZE"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret  string `mapstructure:"JWT_REFRESH_SECRET"`
	JWTExpires        string `mapstructure:"JWT_EXPIRES"`
	JWTRefreshExpires string `mapstructure:"JWT_REFRESH_EXPIRES"`
	JWTIssuer         string `mapstructure:"JWT_ISSUER"`

	BcryptCost  int `mapstructure:"BCRYPT_COST"`
	HashWorkers int `mapstructure:"HASH_WORKERS"`

	CORSOrigin     string `mapstructure:"CORS_ORIGIN"`
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
	BodyLimitBytes int64  `mapstructure:"BODY_LIMIT_BYTES"`

	AuthRateLimit   int           `mapstructure:"AUTH_RATE_LIMIT"`
	AuthRateWindow  time.Duration `mapstructure:"AUTH_RATE_WINDOW"`
	RateLimitPrefix string        `mapstructure:"RATE_LIMIT_PREFIX"`

	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
	AuditStreamMaxLen int64  `mapstructure:"AUDIT_STREAM_MAXLEN"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Parsed from JWTExpires and JWTRefreshExpires.
	AccessTTL  time.Duration `mapstructure:"-"`
	RefreshTTL time.Duration `mapstructure:"-"`
}

var defaults = map[string]any{
	"PORT":                "3000",
	"GIN_MODE":            "release",
	"LOG_LEVEL":           "info",
	"DB_DRIVER":           "postgres",
	"DB_HOST":             "localhost",
	"DB_USER":             "postgres",
	"DB_NAME":             "ge",
	"DB_SSLMODE":          "disable",
	"DB_POOL_SIZE":        10,
	"JWT_EXPIRES":         "15m",
	"JWT_REFRESH_EXPIRES": "7d",
	"JWT_ISSUER":          "ge-api",
	"BCRYPT_COST":         10,
	"HASH_WORKERS":        0,
	"BODY_LIMIT_BYTES":    100 * 1024,
	"AUTH_RATE_LIMIT":     30,
	"AUTH_RATE_WINDOW":    "15m",
	"RATE_LIMIT_PREFIX":   "ge:rate_limit",
	"REDIS_DB":            0,
	"AUDIT_STREAM_MAXLEN": 100000,
	"SHUTDOWN_TIMEOUT":    "10s",
}

// Load reads configuration from the environment and an optional .env file in
// path.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{"DATABASE_URL", "DB_PASSWORD", "JWT_SECRET", "JWT_REFRESH_SECRET",
		"CORS_ORIGIN", "TRUSTED_PROXIES", "REDIS_ADDR", "REDIS_PASSWORD"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	var err error
	if cfg.AccessTTL, err = ParseTTL(cfg.JWTExpires); err != nil {
		return Config{}, fmt.Errorf("JWT_EXPIRES: %w", err)
	}
	if cfg.RefreshTTL, err = ParseTTL(cfg.JWTRefreshExpires); err != nil {
		return Config{}, fmt.Errorf("JWT_REFRESH_EXPIRES: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.BcryptCost < 10 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least 10, got %d", c.BcryptCost))
	}
	if c.DBPoolSize < 1 {
		errs = append(errs, fmt.Errorf("DB_POOL_SIZE must be at least 1, got %d", c.DBPoolSize))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode))
	}
	switch c.DBDriver {
	case "postgres", "pgx", "mysql":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres, pgx or mysql, got %q", c.DBDriver))
	}
	if c.AuthRateLimit < 1 || c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive"))
	}
	if c.BodyLimitBytes < 1 {
		errs = append(errs, errors.New("BODY_LIMIT_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// DSN returns DATABASE_URL, or a driver-specific DSN assembled from the
// DB_* keys.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		if c.DBDriver == "mysql" {
			return withParseTime(c.DatabaseURL)
		}
		return c.DatabaseURL
	}
	if c.DBDriver == "mysql" {
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, c.dbPort("3306"))
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, c.dbPort("5432")),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// withParseTime makes the MySQL driver return DATETIME columns as time.Time.
// A DSN that does not parse is returned unchanged for Open to reject.
func withParseTime(dsn string) string {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return dsn
	}
	mc.ParseTime = true
	return mc.FormatDSN()
}

func (c Config) dbPort(fallback string) string {
	if c.DBPort != "" {
		return c.DBPort
	}
	return fallback
}

// CORSOrigins splits CORS_ORIGIN. An empty result allows any origin.
func (c Config) CORSOrigins() []string {
	return splitList(c.CORSOrigin)
}

func (c Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseTTL accepts Go durations ("15m", "1h30m"), whole days ("7d") and bare
// integers, which are read as seconds.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}
