// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - AveragesFile: YAML average definitions (default: built-in averages)
  - ExportParallelism: Independent groups weighted at once (default: 4)
  - ResponseLevelMaxDepth: Deepest level response-level weights are read from (default: 2, 0 disables them)
  - LogLevel: slog level (default: info)

# CLI Flags

	-p                     Server port
	-d                     Database URL
	-t                     Database type
	-admin-salt            Admin key salt
	-averages              Averages YAML file
	-parallelism           Export parallelism
	-response-level-depth  Response-level depth bound
	-log-level             Log level
	-env                   Environment file (default: .env)

# Environment Variables

The -env file is loaded first with godotenv; it never overrides variables
that are already set. Flags then fall back to environment variables:

	PORT                     → -p
	DATABASE_URL             → -d
	DATABASE_TYPE            → -t
	ADMIN_KEY_SALT           → -admin-salt
	AVERAGES_FILE            → -averages
	EXPORT_PARALLELISM       → -parallelism
	RESPONSE_LEVEL_MAX_DEPTH → -response-level-depth
	LOG_LEVEL                → -log-level

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided
  - Parallelism must be at least 1

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	driver, _ := db.DriverName(cfg.DatabaseType)
	conn, err := sql.Open(driver, cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(deps, cfg)
*/
package cliparse
