// internal/db/migrations/migrations.go
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

const dir = "sql"

//go:embed sql/*.sql
var FS embed.FS

// Swapped in tests so no database is needed.
var (
	upContext     = goose.UpContext
	downContext   = goose.DownContext
	statusContext = goose.StatusContext
)

func prepare() error {
	goose.SetBaseFS(FS)
	return goose.SetDialect("postgres")
}

// RunMigrations applies every pending migration.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return upContext(ctx, db, dir)
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return downContext(ctx, db, dir)
}

// Status logs the applied state of each migration.
func Status(ctx context.Context, db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return statusContext(ctx, db, dir)
}
