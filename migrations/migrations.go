// Package migrations embeds the schema so the migrate command runs from any
// working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
