// Package migrations embeds the schema for every supported dialect.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per dialect:
// postgres/, mysql/ and sqlite/.
//
//go:embed postgres/*.sql mysql/*.sql sqlite/*.sql
var FS embed.FS
