package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVisibleCommand() *cobra.Command {
	var source formSource

	cmd := &cobra.Command{
		Use:   "visible",
		Short: "List the ids of the visible fields of a form, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			eval, err := source.evaluator(config, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, section := range eval.Snapshot(config.Evaluation.EditMode).Sections {
				for _, field := range section.Fields {
					if !field.Visible {
						continue
					}
					if _, err := fmt.Fprintln(out, field.ID); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	source.register(cmd)
	return cmd
}
