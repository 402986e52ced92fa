// Package migrations embeds the inventory schema into the binary.
//
// Importing this package for its side effect registers the SQL files with
// the database package, so Migrate works without the files on disk.
package migrations

import (
	"embed"

	"github.com/yurtlab/pjinventory/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
