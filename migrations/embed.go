// Package migrations embeds the PostgreSQL schema, applied in file name order
// at startup when STORE_DRIVER=postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
