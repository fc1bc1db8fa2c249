package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"library-lending/internal/lending"
	"library-lending/internal/repositories"
)

// ErrInvalidDriver is returned when DB_DRIVER names an unknown backend.
var ErrInvalidDriver = errors.New("invalid database driver")

// Config captures process level configuration.
type Config struct {
	Addr        string
	DBDriver    string
	DatabaseURL string
	// Seed loads the demo catalog at startup.
	Seed     bool
	Policy   lending.Policy
	Security Security
}

// Security controls the bearer-token gate on mutating routes.
type Security struct {
	Enforce       bool
	JWTSigningKey string
	JWTIssuer     string
	// DevToken mints a demo token for m1 at boot and serves it on GET /dev.
	DevToken bool
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        getenv("SERVER_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Policy:      lending.DefaultPolicy(),
		Security: Security{
			// Use a default for development - should be overridden in production
			JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getenv("JWT_ISSUER", "dev-local"),
		},
	}

	cfg.DBDriver = os.Getenv("DB_DRIVER")
	if cfg.DBDriver == "" {
		cfg.DBDriver = repositories.DriverMemory
		if cfg.DatabaseURL != "" {
			cfg.DBDriver = repositories.DriverPostgres
		}
	}
	switch cfg.DBDriver {
	case repositories.DriverMemory:
	case repositories.DriverPostgres, repositories.DriverSQLite:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for driver %s", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.DBDriver)
	}

	var err error
	if cfg.Policy.MaxLoans, err = intEnv("LIBRARY_MAX_LOANS", lending.DefaultMaxLoans); err != nil {
		return Config{}, err
	}
	if cfg.Policy.LoanPeriodDays, err = intEnv("LIBRARY_LOAN_DAYS", lending.DefaultLoanPeriodDays); err != nil {
		return Config{}, err
	}
	if cfg.Seed, err = boolEnv("LIBRARY_SEED", cfg.DBDriver == repositories.DriverMemory); err != nil {
		return Config{}, err
	}
	if cfg.Security.Enforce, err = boolEnv("LIBRARY_SECURITY_ENFORCE", true); err != nil {
		return Config{}, err
	}
	if cfg.Security.DevToken, err = boolEnv("LIBRARY_DEV_TOKEN", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}
