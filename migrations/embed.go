// Package migrations embeds the SQL schema for the ride journal.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
