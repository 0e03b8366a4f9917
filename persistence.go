package authkit

import (
	"context"
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDB opens a bun database for the configured driver
func OpenDB(cfg PersistenceConfig) (*bun.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.GetDriver()))

	switch {
	case isPostgres(driver):
		sqldb, err := sql.Open("pgx", cfg.GetDSN())
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case driver == "" || driver == DriverSQLite || driver == "sqlite3":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}

	return nil, goerrors.New("unsupported persistence driver", goerrors.CategoryBadInput).
		WithTextCode("UNSUPPORTED_DRIVER").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"driver": driver,
		})
}

func isPostgres(driver string) bool {
	switch strings.ToLower(driver) {
	case DriverPostgres, "postgresql", "pgx":
		return true
	}
	return false
}

// gooseUpContext is swapped in tests
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations matching the database dialect
func Migrate(ctx context.Context, db *bun.DB) error {
	driver, gooseDialect := DriverSQLite, "sqlite3"
	if db.Dialect().Name() == dialect.PG {
		driver, gooseDialect = DriverPostgres, "postgres"
	}

	migrations, err := DialectMigrations(driver)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set migration dialect")
	}

	if err := gooseUpContext(ctx, db.DB, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return nil
}
