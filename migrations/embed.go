// Package migrations embeds the SQL migration files so they can be applied
// by the goose programmatic API at startup and in tests.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
// Every file must run unchanged on both SQLite and Postgres.
//
//go:embed *.sql
var FS embed.FS
