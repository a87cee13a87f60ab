package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lychee-technology/formlogic"
	"github.com/lychee-technology/formlogic/internal/collections"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileFormRegistry is a FormRegistry implementation that loads form
// definitions from *.json, *.yaml and *.yml files in a directory.
// Forms are keyed by the id inside the definition, not by file name.
type FileFormRegistry struct {
	mu       sync.RWMutex
	formDir  string
	validate bool
	forms    map[string]*formlogic.Form
	sources  map[string]string // form id -> file it was loaded from
}

var _ formlogic.FormRegistry = (*FileFormRegistry)(nil)

// NewFileFormRegistry creates a registry that scans formDir for form
// definitions. When validate is set every definition must pass
// formlogic.ValidateFormDefinition.
func NewFileFormRegistry(formDir string, validate bool) (*FileFormRegistry, error) {
	registry := &FileFormRegistry{
		formDir:  formDir,
		validate: validate,
	}

	if err := registry.Reload(); err != nil {
		return nil, err
	}

	return registry, nil
}

// Reload rescans the directory. On failure the previously loaded forms stay
// in place.
func (r *FileFormRegistry) Reload() error {
	forms, sources, err := r.loadFormsFromDirectory()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms = forms
	r.sources = sources
	return nil
}

func (r *FileFormRegistry) loadFormsFromDirectory() (map[string]*formlogic.Form, map[string]string, error) {
	entries, err := os.ReadDir(r.formDir)
	if err != nil {
		return nil, nil, loadError(r.formDir, "failed to read form directory", err)
	}

	// Sort by name so duplicate detection reports the same file every time
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isFormFile(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	forms := make(map[string]*formlogic.Form, len(files))
	sources := make(map[string]string, len(files))
	for _, name := range files {
		path := filepath.Join(r.formDir, name)
		form, err := r.loadFormFile(path)
		if err != nil {
			return nil, nil, err
		}

		if previous, exists := sources[form.ID]; exists {
			return nil, nil, formlogic.NewFormError(formlogic.ErrorTypeValidation, formlogic.ErrCodeDuplicateID,
				"form id defined more than once").
				WithForm(form.ID).
				WithDetail("files", []string{previous, path})
		}

		forms[form.ID] = form
		sources[form.ID] = path
		zap.S().Debugw("loaded form definition", "form", form.ID, "file", path)
	}

	if len(forms) == 0 {
		zap.S().Warnw("no form definitions found", "dir", r.formDir)
	}

	return forms, sources, nil
}

func (r *FileFormRegistry) loadFormFile(path string) (*formlogic.Form, error) {
	data, err := ReadDocument(path)
	if err != nil {
		return nil, loadError(path, "failed to read form file", err)
	}

	var form *formlogic.Form
	if r.validate {
		form, err = formlogic.ParseFormDefinition(data)
	} else {
		form, err = formlogic.ParseForm(data)
	}
	if err != nil {
		return nil, loadError(path, "invalid form definition", err)
	}
	if form.ID == "" {
		return nil, loadError(path, "form definition has no id", nil)
	}
	return form, nil
}

func loadError(path, message string, cause error) *formlogic.FormError {
	err := formlogic.NewFormError(formlogic.ErrorTypeInternal, formlogic.ErrCodeRegistryLoadFail, message).
		WithDetail("path", path)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// ReadDocument reads a JSON or YAML file and returns its content as JSON.
func ReadDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
	}
	return data, nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share one
// decoder and one schema.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalizeYAML converts map[any]any nodes, which encoding/json rejects, into
// map[string]any.
func normalizeYAML(node any) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			normalized, err := normalizeYAML(value)
			if err != nil {
				return nil, err
			}
			v[key] = normalized
		}
		return v, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			normalized, err := normalizeYAML(value)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = normalized
		}
		return out, nil
	case []any:
		for i, item := range v {
			normalized, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			v[i] = normalized
		}
		return v, nil
	default:
		return v, nil
	}
}

func isFormFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// GetForm returns a copy of the form with the given id
func (r *FileFormRegistry) GetForm(id string) (*formlogic.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	form, exists := r.forms[id]
	if !exists {
		return nil, formlogic.NewFormNotFoundError(id)
	}

	// Return a copy to prevent external mutations
	formCopy := *form
	formCopy.Sections = formlogic.CloneSections(form.Sections)
	return &formCopy, nil
}

// ListForms returns a list of all registered form ids
func (r *FileFormRegistry) ListForms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return collections.SortedKeys(r.forms)
}

// Source returns the file a form was loaded from.
func (r *FileFormRegistry) Source(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.sources[id]
	return path, ok
}
