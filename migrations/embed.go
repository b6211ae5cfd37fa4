// Package migrations embeds the SQL backend's schema, one directory per
// dialect, into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/database"
)

//go:embed sqlite/*.sql mysql/*.sql postgres/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
