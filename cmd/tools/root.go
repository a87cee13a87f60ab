package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lychee-technology/formlogic"
	"github.com/lychee-technology/formlogic/factory"
	"github.com/lychee-technology/formlogic/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "formlogic-tools",
		Short:         "Evaluate and validate form definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerConfigFlags(root.PersistentFlags())

	root.AddCommand(
		newEvaluateCommand(),
		newVisibleCommand(),
		newValidateCommand(),
		newListCommand(),
	)
	return root
}

// formSource holds the flags shared by commands that operate on one form.
type formSource struct {
	formID     string
	file       string
	valuesFile string
}

func (s *formSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.formID, "form", "", "id of a form in the registry")
	cmd.Flags().StringVar(&s.file, "file", "", "form definition file (JSON or YAML) instead of the registry")
	cmd.Flags().StringVar(&s.valuesFile, "values", "", "JSON or YAML object of field id to value")
}

// evaluator builds a FormEvaluator from the flags.
func (s *formSource) evaluator(config *formlogic.Config, logger *zap.Logger) (*formlogic.FormEvaluator, error) {
	values, err := s.values()
	if err != nil {
		return nil, err
	}

	switch {
	case s.file != "" && s.formID != "":
		return nil, fmt.Errorf("--form and --file are mutually exclusive")
	case s.file != "":
		form, err := readForm(s.file, config.Evaluation.ValidateDefinitions)
		if err != nil {
			return nil, err
		}
		return formlogic.NewFormEvaluator(form.Sections,
			formlogic.WithValues(values),
			formlogic.WithLogger(logger),
		), nil
	case s.formID != "":
		registry, err := factory.NewFormRegistryWithConfig(config)
		if err != nil {
			return nil, err
		}
		return factory.NewEvaluatorForForm(registry, s.formID, values, logger)
	}
	return nil, fmt.Errorf("one of --form or --file is required")
}

func (s *formSource) values() (formlogic.FieldValues, error) {
	if s.valuesFile == "" {
		return nil, nil
	}
	data, err := internal.ReadDocument(s.valuesFile)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var values formlogic.FieldValues
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}

func readForm(path string, validate bool) (*formlogic.Form, error) {
	data, err := internal.ReadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	if validate {
		return formlogic.ParseFormDefinition(data)
	}
	return formlogic.ParseForm(data)
}

// setup loads the config and installs the configured logger.
func setup(cmd *cobra.Command) (*formlogic.Config, *zap.Logger, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := configureLogger(config)
	if err != nil {
		return nil, nil, err
	}
	return config, logger, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
