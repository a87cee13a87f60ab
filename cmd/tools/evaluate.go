package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEvaluateCommand() *cobra.Command {
	var source formSource
	var fieldID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Print the evaluated snapshot of a form, or one calculated field",
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

			if fieldID != "" {
				result, err := eval.CalculatedValue(fieldID)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.Value); err != nil {
					return err
				}
				if result.IsSentinel() {
					return fmt.Errorf("field %s: %s", fieldID, result.Value)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), eval.Snapshot(config.Evaluation.EditMode))
		},
	}
	source.register(cmd)
	cmd.Flags().StringVar(&fieldID, "field", "", "print only the value of this calculated field; a sentinel value fails the command")
	return cmd
}
