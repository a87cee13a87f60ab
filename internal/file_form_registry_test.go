package internal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lychee-technology/formlogic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactJSON = `{
  "id": "contact",
  "title": "Contact",
  "sections": [
    {"id": "main", "title": "Main", "fields": [
      {"id": "name", "type": "text", "label": "Name"},
      {"id": "phone", "type": "phone", "label": "Phone",
       "visibilityCondition": {"conditions": [{"sourceFieldId": "name", "operator": "is_not_empty"}]}}
    ]}
  ]
}`

const invoiceYAML = `
id: invoice
title: Invoice
sections:
  - id: lines
    title: Lines
    fields:
      - id: amount
        type: number
        label: Amount
        value: "100"
      - id: tax
        type: calculated
        label: Tax
        formula:
          expressions:
            - {type: field, value: amount}
            - {type: operator, value: "*"}
            - {type: number, value: "0.2"}
          displayFormat: "0.00"
`

func writeForm(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestNewFileFormRegistry(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "contact.json", contactJSON)
	writeForm(t, dir, "invoice.yml", invoiceYAML)
	writeForm(t, dir, "README.md", "not a form")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	registry, err := NewFileFormRegistry(dir, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"contact", "invoice"}, registry.ListForms())

	form, err := registry.GetForm("invoice")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", form.Title)
	require.Len(t, form.Sections, 1)

	eval := formlogic.NewFormEvaluator(form.Sections)
	result, err := eval.CalculatedValue("tax")
	require.NoError(t, err)
	assert.Equal(t, "20.00", result.Value)

	source, ok := registry.Source("invoice")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "invoice.yml"), source)
}

func TestFileFormRegistryGetFormNotFound(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "contact.json", contactJSON)

	registry, err := NewFileFormRegistry(dir, true)
	require.NoError(t, err)

	form, err := registry.GetForm("missing")
	assert.Nil(t, form)
	assert.True(t, formlogic.IsNotFoundError(err))
}

func TestFileFormRegistryReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "contact.json", contactJSON)

	registry, err := NewFileFormRegistry(dir, true)
	require.NoError(t, err)

	form, err := registry.GetForm("contact")
	require.NoError(t, err)
	form.Sections[0].Fields[0].Value = formlogic.StringValue("changed")
	form.Title = "changed"

	again, err := registry.GetForm("contact")
	require.NoError(t, err)
	assert.True(t, again.Sections[0].Fields[0].Value.IsNone())
	assert.Equal(t, "Contact", again.Title)
}

func TestFileFormRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "a.json", contactJSON)
	writeForm(t, dir, "b.json", contactJSON)

	_, err := NewFileFormRegistry(dir, true)
	require.Error(t, err)

	var formErr *formlogic.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, formlogic.ErrCodeDuplicateID, formErr.Code)
	assert.Equal(t, "contact", formErr.FormID)
}

func TestFileFormRegistryValidation(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "broken.json", `{"id": "broken", "sections": [{"id": "s", "fields": [
		{"id": "total", "type": "calculated"}
	]}]}`)

	_, err := NewFileFormRegistry(dir, true)
	require.Error(t, err)
	assert.True(t, formlogic.IsValidationError(err))

	var formErr *formlogic.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, formlogic.ErrCodeRegistryLoadFail, formErr.Code)

	// integrity problems only surface when validation is on
	registry, err := NewFileFormRegistry(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, registry.ListForms())
}

func TestFileFormRegistryInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "malformed json", file: "bad.json", body: `{"id": `},
		{name: "malformed yaml", file: "bad.yaml", body: "id: [unclosed"},
		{name: "missing id", file: "noid.json", body: `{"sections": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeForm(t, dir, tt.file, tt.body)

			_, err := NewFileFormRegistry(dir, false)
			require.Error(t, err)
		})
	}
}

func TestFileFormRegistryMissingDirectory(t *testing.T) {
	_, err := NewFileFormRegistry(filepath.Join(t.TempDir(), "missing"), true)
	require.Error(t, err)
}

func TestFileFormRegistryEmptyDirectory(t *testing.T) {
	registry, err := NewFileFormRegistry(t.TempDir(), true)
	require.NoError(t, err)
	assert.Empty(t, registry.ListForms())
}

func TestFileFormRegistryReload(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "contact.json", contactJSON)

	registry, err := NewFileFormRegistry(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact"}, registry.ListForms())

	writeForm(t, dir, "invoice.yaml", invoiceYAML)
	require.NoError(t, registry.Reload())
	assert.Equal(t, []string{"contact", "invoice"}, registry.ListForms())

	// a failed reload keeps the previous forms
	writeForm(t, dir, "dup.json", contactJSON)
	require.Error(t, registry.Reload())
	assert.Equal(t, []string{"contact", "invoice"}, registry.ListForms())
}

func TestFileFormRegistryConcurrentReads(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "contact.json", contactJSON)

	registry, err := NewFileFormRegistry(dir, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := registry.GetForm("contact")
				assert.NoError(t, err)
				_ = registry.ListForms()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, registry.Reload())
	}()
	wg.Wait()
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "values.yaml", "qty: 3\nflags: [true, false]\nnested:\n  a: b\n")

	data, err := ReadDocument(filepath.Join(dir, "values.yaml"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"qty": 3, "flags": [true, false], "nested": {"a": "b"}}`, string(data))

	writeForm(t, dir, "values.json", `{"qty": 3}`)
	data, err = ReadDocument(filepath.Join(dir, "values.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"qty": 3}`, string(data))
}

func TestNormalizeYAML(t *testing.T) {
	got, err := normalizeYAML(map[any]any{1: []any{map[any]any{"k": "v"}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": []any{map[string]any{"k": "v"}}}, got)
}
