package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront-catalog/pkg/database"
	esrepo "github.com/utafrali/storefront-catalog/services/catalog/internal/repository/elasticsearch"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/postgres"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// catalogctl reindex --store <id>
func newReindexCmd() *cobra.Command {
	var (
		storeID  string
		recreate bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Copy a store's catalog from PostgreSQL into Elasticsearch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pgCfg := cfg.Postgres()
			pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			index, err := esrepo.New(ctx, []string{cfg.ElasticsearchURL}, cfg.ElasticsearchIndex, log)
			if err != nil {
				return err
			}
			if recreate {
				if err := index.DeleteIndex(ctx); err != nil {
					return err
				}
				if index, err = esrepo.New(ctx, []string{cfg.ElasticsearchURL}, cfg.ElasticsearchIndex, log); err != nil {
					return err
				}
			}

			svc := service.NewIndexService(postgres.NewCatalogRepository(pool), index, log)
			n, err := svc.Reindex(ctx, storeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d products for store %s\n", n, storeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "store ID to reindex")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the index first")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}
