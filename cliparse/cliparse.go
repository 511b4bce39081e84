package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AddressSalt   string
	AllowedOrigin string

	// Admission policy
	StrictAddress      bool
	RequireFingerprint bool
	RateLimit          int
	RateWindow         time.Duration

	StorageTimeout time.Duration
	SendBuffer     int
}

// LoadEnvFile loads KEY=value pairs from path into the environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ParseFlags validates flags and fills defaults from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := pflag.NewFlagSet("livepoll", pflag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	fs.StringVarP(&cfg.DatabaseURL, "database", "d", "", "Database URL")
	fs.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.AllowedOrigin, "client-url", "", "Allowed browser origin for CORS and WebSocket upgrades")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AddressSalt, "address-salt", "", "Source address hashing salt (prefer env)")

	fs.BoolVar(&cfg.StrictAddress, "strict-address", true, "Allow only one vote per poll per source address")
	fs.BoolVar(&cfg.RequireFingerprint, "require-fingerprint", true, "Reject votes without a client fingerprint")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Votes allowed per address within the rate window")
	fs.DurationVar(&cfg.RateWindow, "rate-window", 0, "Trailing window for the address rate limit")
	fs.DurationVar(&cfg.StorageTimeout, "storage-timeout", 0, "Timeout for storage calls made by one request")
	fs.IntVar(&cfg.SendBuffer, "send-buffer", 0, "Outbound frames queued per socket before the oldest is dropped")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = os.Getenv("CLIENT_URL")
	}

	if !fs.Changed("strict-address") {
		v, err := envBool("STRICT_ADDRESS_VOTES", true)
		if err != nil {
			return Config{}, err
		}
		cfg.StrictAddress = v
	}
	if !fs.Changed("require-fingerprint") {
		v, err := envBool("REQUIRE_FINGERPRINT", true)
		if err != nil {
			return Config{}, err
		}
		cfg.RequireFingerprint = v
	}

	if cfg.RateLimit == 0 {
		v, err := envInt("RATE_LIMIT", 10)
		if err != nil {
			return Config{}, err
		}
		cfg.RateLimit = v
	}
	if cfg.RateWindow == 0 {
		v, err := envDuration("RATE_WINDOW", time.Hour)
		if err != nil {
			return Config{}, err
		}
		cfg.RateWindow = v
	}
	if cfg.StorageTimeout == 0 {
		v, err := envDuration("STORAGE_TIMEOUT", 5*time.Second)
		if err != nil {
			return Config{}, err
		}
		cfg.StorageTimeout = v
	}
	if cfg.SendBuffer == 0 {
		v, err := envInt("SEND_BUFFER", 32)
		if err != nil {
			return Config{}, err
		}
		cfg.SendBuffer = v
	}

	// Secrets - MUST be provided
	if cfg.AddressSalt == "" {
		cfg.AddressSalt = os.Getenv("ADDRESS_SALT")
	}
	if cfg.AddressSalt == "" {
		return Config{}, errors.New("ADDRESS_SALT required")
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s env variable", key)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return v, nil
}
