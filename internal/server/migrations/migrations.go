// Package migrations embeds the goose SQL migrations that create the
// relational schema. They are applied once at startup and are idempotent.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
