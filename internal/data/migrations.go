package data

import (
	"context"
	"database/sql"

	"github.com/target/mmk-content-dashboard/internal/migrate"
)

// RunMigrations applies the settings history schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
