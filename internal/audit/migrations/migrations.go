// Package migrations embeds the audit database schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
