package migrations

import "embed"

// FS holds the search index schema migrations.
//
//go:embed *.sql
var FS embed.FS
