package factory

import (
	"fmt"

	"github.com/lychee-technology/formlogic"
	"github.com/lychee-technology/formlogic/internal"
	"go.uber.org/zap"
)

// registryConstructor is swapped in tests.
var registryConstructor = func(dir string, validate bool) (formlogic.FormRegistry, error) {
	return internal.NewFileFormRegistry(dir, validate)
}

// NewFormRegistryWithConfig creates a file-backed FormRegistry from the
// registry section of config. This is the primary way for external projects
// to load form definitions.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/formlogic"
//	    "github.com/lychee-technology/formlogic/factory"
//	)
//
//	config := formlogic.DefaultConfig()
//	config.Registry.Directory = "./forms"
//	registry, err := factory.NewFormRegistryWithConfig(config)
//	if err != nil {
//	    // handle error
//	}
func NewFormRegistryWithConfig(config *formlogic.Config) (formlogic.FormRegistry, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry, err := registryConstructor(config.Registry.Directory, config.Registry.ValidateOnLoad)
	if err != nil {
		return nil, fmt.Errorf("failed to load form registry: %w", err)
	}

	zap.S().Infow("form registry loaded", "dir", config.Registry.Directory, "forms", len(registry.ListForms()))
	return registry, nil
}

// NewEvaluatorForForm looks up formID in registry and returns an evaluator
// over its sections with values overlaid.
func NewEvaluatorForForm(registry formlogic.FormRegistry, formID string, values formlogic.FieldValues, logger *zap.Logger) (*formlogic.FormEvaluator, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	form, err := registry.GetForm(formID)
	if err != nil {
		return nil, err
	}
	return formlogic.NewFormEvaluator(form.Sections,
		formlogic.WithValues(values),
		formlogic.WithLogger(logger),
	), nil
}
