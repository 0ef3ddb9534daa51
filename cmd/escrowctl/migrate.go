package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/mongo"
	"github.com/xraph/escrow/store/postgres"
	"github.com/xraph/escrow/store/sqlite"
)

func newMigrateCmd() *cobra.Command {
	var (
		driver   string
		dsn      string
		database string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the escrow schema in a store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			s, err := openStore(ctx, driver, dsn, database)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate %s: %w", driver, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "escrow schema is up to date (%s)\n", driver)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "sqlite", "store driver: pg, sqlite or mongo")
	cmd.Flags().StringVar(&dsn, "dsn", "file:escrow.db", "connection string for the driver")
	cmd.Flags().StringVar(&database, "database", "", "mongo database name when the URI has none")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "time limit for connecting and migrating")
	return cmd
}

// openStore connects to a grove driver and wraps it in the matching store.
func openStore(ctx context.Context, driver, dsn, database string) (store.Store, error) {
	switch driver {
	case "pg", "postgres":
		pg := pgdriver.New()
		if err := pg.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("open pg: %w", err)
		}
		db, err := grove.Open(pg)
		if err != nil {
			return nil, err
		}
		return postgres.New(db), nil

	case "sqlite":
		lite := sqlitedriver.New()
		if err := lite.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db, err := grove.Open(lite)
		if err != nil {
			return nil, err
		}
		return sqlite.New(db), nil

	case "mongo":
		var opts []mongodriver.MongoOption
		if database != "" {
			opts = append(opts, mongodriver.WithDatabase(database))
		}
		m := mongodriver.New()
		if err := m.Open(ctx, dsn, opts...); err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		db, err := grove.Open(m)
		if err != nil {
			return nil, err
		}
		return mongo.New(db), nil

	default:
		return nil, fmt.Errorf("unknown driver %q (want pg, sqlite or mongo)", driver)
	}
}
