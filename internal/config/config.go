// Package config loads the server's settings from environment variables.
//
// WHY ENV VARS?
// They work the same locally and in a container, and they keep the JWT secret
// out of files that might get committed. caarlos0/env reads the struct tags
// below and fills in the defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/todo-tracker/internal/auth"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is every setting the server reads at startup. It is immutable after
// Load returns.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	DBDriver    string `env:"DB_DRIVER"    envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH"      envDefault:"data/todo.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string        `env:"JWT_ISSUER"   envDefault:"todo-api"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"todo-client"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"    envDefault:"24h"`
	BcryptCost  int           `env:"BCRYPT_COST"  envDefault:"12"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy can be
// fixed in one go.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required when DB_DRIVER=sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}

	if len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength))
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		errs = append(errs, errors.New("JWT_ISSUER and JWT_AUDIENCE must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// LogValue implements slog.LogValuer so the config can be logged at startup
// without leaking the secret or the database password.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("port", c.Port),
		slog.String("dbDriver", c.DBDriver),
		slog.String("jwtIssuer", c.JWTIssuer),
		slog.String("jwtAudience", c.JWTAudience),
		slog.Duration("tokenTTL", c.TokenTTL),
		slog.Int("bcryptCost", c.BcryptCost),
		slog.Any("corsAllowedOrigins", c.CORSAllowedOrigins),
		slog.String("jwtSecret", "[REDACTED]"),
	}
	if c.DBDriver == DriverSQLite {
		attrs = append(attrs, slog.String("dbPath", c.DBPath))
	}
	return slog.GroupValue(attrs...)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
//
// Text is easier to read in a terminal; JSON is what log shippers want.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
