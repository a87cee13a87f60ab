package main

import (
	"errors"
	"fmt"

	"github.com/lychee-technology/formlogic"
	"github.com/lychee-technology/formlogic/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate form definition files, or the whole registry when no file is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, _, err := setup(cmd)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				registry, err := internal.NewFileFormRegistry(config.Registry.Directory, true)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d form definitions valid\n", len(registry.ListForms()))
				return err
			}

			failed := 0
			for _, path := range args {
				data, err := internal.ReadDocument(path)
				if err == nil {
					err = formlogic.ValidateFormDefinition(data)
				}
				if err != nil {
					failed++
					if err := reportInvalid(cmd, path, err); err != nil {
						return err
					}
					continue
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
}

func reportInvalid(cmd *cobra.Command, path string, err error) error {
	zap.S().Debugw("definition invalid", "path", path, "err", err)
	out := cmd.OutOrStdout()
	var verrs *formlogic.ValidationErrors
	if !errors.As(err, &verrs) {
		_, werr := fmt.Fprintf(out, "%s: %s\n", path, err.Error())
		return werr
	}
	for _, e := range verrs.Errors {
		if _, werr := fmt.Fprintf(out, "%s: %s\n", path, e.Error()); werr != nil {
			return werr
		}
	}
	return nil
}
