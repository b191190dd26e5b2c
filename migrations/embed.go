// Package migrations carries the PostgreSQL schema applied by `cad-api migrate`.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
