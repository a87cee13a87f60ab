package main

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/lychee-technology/formlogic"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	envPrefix       = "FORMLOGIC_"
	configDelimiter = "."
	configFileFlag  = "config"
)

// registerConfigFlags declares one persistent flag per config key. Flag
// defaults come from formlogic.DefaultConfig.
func registerConfigFlags(flags *pflag.FlagSet) {
	defaults := formlogic.DefaultConfig()
	flags.String(configFileFlag, "", "YAML config file")
	flags.String("registry.directory", defaults.Registry.Directory, "directory holding form definitions")
	flags.Bool("registry.validateonload", defaults.Registry.ValidateOnLoad, "validate every definition loaded from the registry")
	flags.Bool("evaluation.editmode", defaults.Evaluation.EditMode, "show every field and section regardless of conditions")
	flags.Bool("evaluation.validatedefinitions", defaults.Evaluation.ValidateDefinitions, "validate definition files passed with --file")
	flags.String("logging.level", defaults.Logging.Level, "log level: debug, info, warn, error")
	flags.String("logging.format", defaults.Logging.Format, "log format: json or console")
	flags.Bool("logging.development", defaults.Logging.Development, "use the development logger")
}

// loadConfig layers flag defaults, the config file, FORMLOGIC_ environment
// variables and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (*formlogic.Config, error) {
	k := koanf.New(configDelimiter)
	flags := cmd.Flags()

	if err := k.Load(posflag.Provider(flags, configDelimiter, k), nil); err != nil {
		return nil, err
	}

	if path, _ := flags.GetString(configFileFlag); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			zap.S().Warnw("config file not found", "path", path)
		}
	}

	if err := k.Load(env.Provider(envPrefix, configDelimiter, envKey), nil); err != nil {
		return nil, err
	}

	if err := k.Load(posflag.Provider(flags, configDelimiter, k), nil); err != nil {
		return nil, err
	}

	config := formlogic.DefaultConfig()
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// envKey maps FORMLOGIC_REGISTRY_DIRECTORY to registry.directory.
func envKey(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(raw, envPrefix)), "_", configDelimiter)
}

// configureLogger replaces the global logger when the config asks for a
// different one than the production default.
func configureLogger(config *formlogic.Config) (*zap.Logger, error) {
	logger, err := config.Logging.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
