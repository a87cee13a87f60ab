package main

import (
	"fmt"

	"github.com/lychee-technology/formlogic/factory"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the ids of the forms in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, _, err := setup(cmd)
			if err != nil {
				return err
			}
			registry, err := factory.NewFormRegistryWithConfig(config)
			if err != nil {
				return err
			}
			for _, id := range registry.ListForms() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
