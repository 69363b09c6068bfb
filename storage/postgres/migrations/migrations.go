package pgmigrations

import "embed"

// FS holds the Postgres schema migrations, applied in file name order.
//
//go:embed *.up.sql
var FS embed.FS
