// Package migrations embeds the account cart schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
