// Package db provides the embedded schema for the PostgreSQL storage driver.
package db

import _ "embed"

// Schema holds the DDL for the kv_blobs table, applied at startup.
//
//go:embed migrations/001_schema.sql
var Schema string
