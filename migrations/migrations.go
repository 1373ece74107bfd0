// Package migrations embeds the goose SQL migrations so the binary can
// run them from any working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
