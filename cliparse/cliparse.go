// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  int
	DatabaseURL           string
	DatabaseType          string
	AdminKeySalt          string
	AveragesFile          string
	ExportParallelism     int
	ResponseLevelMaxDepth int
	LogLevel              slog.Level
}

// ParseFlags reads flags, then the environment (after loading .env) for
// anything left unset
func ParseFlags(args []string) (Config, error) {
	var (
		cfg      Config
		envFile  string
		logLevel string
	)

	flags := flag.NewFlagSet("quickly-weigh", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	// Weighting
	flags.StringVar(&cfg.AveragesFile, "averages", "", "YAML file of average definitions")
	flags.IntVar(&cfg.ExportParallelism, "parallelism", 0, "Independent groups weighted at once")
	flags.IntVar(&cfg.ResponseLevelMaxDepth, "response-level-depth", -1, "Deepest nesting level response-level weights are read from")

	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&envFile, "env", ".env", "Environment file to load")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
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

	if cfg.AveragesFile == "" {
		cfg.AveragesFile = os.Getenv("AVERAGES_FILE")
	}
	if cfg.ExportParallelism == 0 {
		n, err := envInt("EXPORT_PARALLELISM", 4)
		if err != nil {
			return Config{}, err
		}
		cfg.ExportParallelism = n
	}
	if cfg.ExportParallelism < 1 {
		return Config{}, errors.New("parallelism must be at least 1")
	}
	if cfg.ResponseLevelMaxDepth < 0 {
		n, err := envInt("RESPONSE_LEVEL_MAX_DEPTH", 2)
		if err != nil {
			return Config{}, err
		}
		cfg.ResponseLevelMaxDepth = n
	}

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return Config{}, fmt.Errorf("invalid log level %q", logLevel)
		}
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	return cfg, nil
}

func envInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return n, nil
}
