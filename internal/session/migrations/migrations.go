// Package migrations embeds the credential store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
