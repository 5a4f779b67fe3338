// Package migrations embeds the SQL migration files into the binary.
package migrations

import (
	"embed"

	"github.com/kaleidoswap/desktop-app/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}
