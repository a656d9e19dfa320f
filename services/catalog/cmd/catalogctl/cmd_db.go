package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/memory"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/postgres"
	"github.com/utafrali/storefront-catalog/services/catalog/migrations"
)

// catalogctl migrate
func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := database.PendingMigrations(migrations.FS)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}
			pgCfg := cfg.Postgres()
			pool, err := database.NewPostgresPoolWithLogger(cmd.Context(), &pgCfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.RunMigrations(cmd.Context(), pool, migrations.FS, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations in apply order and exit")
	return cmd
}

// catalogctl seed --file <seed.json>
func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert location groups and products from a JSON seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			var seed memory.Seed
			if err := json.NewDecoder(f).Decode(&seed); err != nil {
				return fmt.Errorf("decode seed file: %w", err)
			}

			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}
			pgCfg := cfg.Postgres()
			pool, err := database.NewPostgresPoolWithLogger(cmd.Context(), &pgCfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewSeedWriter(pool).Write(cmd.Context(), seed.LocationGroups, seed.Catalog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d location groups and %d products\n", len(seed.LocationGroups), len(seed.Catalog))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the JSON seed file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
