package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habittracker/internal/repository"
	"habittracker/pkg/config"
	"habittracker/pkg/db"
)

// openStore opens the configured backend and applies its schema. pool is
// nil for SQLite.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, *pgxpool.Pool, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		s, err := repository.OpenSQLite(cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case config.DriverPostgres:
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.CreateSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool, log), pool, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
