package authkit

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// DialectMigrations returns the migration directory for a driver
func DialectMigrations(driver string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations/"+migrationsDir(driver))
}

func migrationsDir(driver string) string {
	if isPostgres(driver) {
		return "postgres"
	}
	return "sqlite"
}
