package app

import (
	"context"
	"fmt"
	"log/slog"

	"prodline-server/internal/config"
	"prodline-server/internal/db"
	"prodline-server/internal/migrate"
	"prodline-server/internal/modules/parameters/repository"
)

// store is an opened, migrated series store and the function that releases it.
type store struct {
	repository repository.ParametersRepository
	close      func()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.OpenPool(ctx, cfg, logger)
		if err != nil {
			return store{}, err
		}
		if err := migrate.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return store{}, err
		}
		return store{repository: repository.NewPostgresRepository(pool), close: pool.Close}, nil

	case "sqlite3":
		conn, err := db.Open(cfg, logger)
		if err != nil {
			return store{}, err
		}
		closeConn := func() {
			if err := db.Close(conn); err != nil {
				logger.Error("db close", "error", err)
			}
		}
		if err := migrate.Run(ctx, conn); err != nil {
			closeConn()
			return store{}, err
		}
		return store{repository: repository.NewRepository(conn), close: closeConn}, nil

	default:
		return store{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}
