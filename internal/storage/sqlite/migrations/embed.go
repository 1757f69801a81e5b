package migrations

import "embed"

// FS contains embedded SQLite migrations for the notes backend.
//
//go:embed *.sql
var FS embed.FS
