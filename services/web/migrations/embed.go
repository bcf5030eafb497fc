// Package migrations embeds the web service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
