// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db creates the schema and implements storage for the weighting
engine on PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite).

# Schema Creation

CreateSchema initializes all required tables for a database type:

	if err := db.CreateSchema(ctx, conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - subset: Subsets and their response date span
  - weighting_plan: Plans, flat, with parent_target_id 0 for roots
  - weighting_target: Targets per plan with proportion and population
  - response_weight: Supplied per-respondent weights per target (0 = root)
  - quota_cell, quota_cell_part: Cells and their ordered key/value parts
  - response: Responses and the cell each fell into
  - allocation_reason: Why a response landed in an unweighted cell
  - variable: Variable definitions as JSON

# Relationships

	subset 1──* weighting_plan 1──* weighting_target
	weighting_target 1──* weighting_plan (nested, via parent_target_id)
	subset 1──* quota_cell 1──* quota_cell_part
	quota_cell 1──* response 1──* allocation_reason

# Store

Store implements every repository the generation service reads from
(subsets, plans, quota cells, responses, allocation reasons, response
weights, variables) plus the writes used by the HTTP API and fixtures.
Decimals are stored as NUMERIC on PostgreSQL and TEXT on SQLite; both
scan into decimal.NullDecimal.
*/
package db
