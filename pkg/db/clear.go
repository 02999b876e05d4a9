package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearOperations removes every stored operation. The schema is preserved.
func ClearOperations(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing operations table", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE operations`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Operations cleared", clearLogPrefix))
	return nil
}
