package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/app"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// catalogctl resolve <storeId> <pincode>
func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <storeId> <pincode>",
		Short: "Print the location group serving a pincode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}

			stores, err := app.OpenStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			svc := service.NewLocationService(location.NewResolver(stores.Locations), log)
			group, err := svc.Resolve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(group)
		},
	}
}
