package migrations

import "embed"

// Files stores goose SQL migrations embedded into the binary. The statements
// stay within the subset shared by SQLite and PostgreSQL.
//
//go:embed *.sql
var Files embed.FS
