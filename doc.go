// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Weigh API server.

Quickly Weigh computes per-respondent survey weights. Responses are grouped
into quota cells, each subset carries a tree of weighting plans, and an
export turns both into one weight per response, either over the subset's
whole span or per period of a named average (Monthly, Quarterly, ...).

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t sqlite -d "file:weights.db" -admin-salt secret

Variables in a .env file (see -env) are loaded first and never override
the real environment.

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): postgres or sqlite (default: sqlite)
  - AVERAGES_FILE (-averages): YAML average definitions (default: built-in)
  - EXPORT_PARALLELISM (-parallelism): Groups weighted concurrently per subset
  - RESPONSE_LEVEL_MAX_DEPTH (-response-level-depth): Deepest nesting that
    per-respondent weights are looked up at; 0 turns them off
  - LOG_LEVEL (-log-level): debug, info, warn or error

# Architecture

  - handlers: HTTP request handlers (weights, plans, averages)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - generation: Export orchestration, locking and reasons
  - cellweights: Quota cell weight generator
  - weighting: Plan trees, flat configuration, copy and classification
  - quotacells: Response-level weights as synthetic cells
  - averages, periods: Average definitions and calendar windows
  - lockqueue: FIFO locks per weighting group
  - metrics: Prometheus collectors
  - models: Domain, request and response types
  - auth: Admin key generation and validation
  - db: Schema and SQL-backed repositories
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
