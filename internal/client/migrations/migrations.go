// Package migrations embeds the goose SQL migrations for videoctl's local
// state database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
