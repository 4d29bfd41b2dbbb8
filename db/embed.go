// Package db provides the embedded database schema and the default seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for users, the catalog and orders.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the bundled bakery catalog used by seed-db when no file is given.
//
//go:embed seed/products.json
var Products []byte
