package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"library-lending/internal/config"
	"library-lending/internal/repositories"
)

func main() {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Book lending service: loans, reservations and due dates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), overdueCmd(), tokenCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// openStore connects the configured backend, migrates SQL schemas and loads
// the demo catalog when cfg.Seed is set. The returned func releases the
// connection.
func openStore(ctx context.Context, cfg config.Config) (repositories.Store, func(), error) {
	if cfg.DBDriver == repositories.DriverMemory {
		store := repositories.NewInMemory()
		if cfg.Seed {
			if err := repositories.Seed(ctx, store); err != nil {
				return nil, nil, err
			}
		}
		return store, func() {}, nil
	}

	db, err := repositories.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repositories.Migrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}

	store := repositories.NewGormStore(db)
	if cfg.Seed {
		if err := repositories.Seed(ctx, store); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return store, closeDB, nil
}
