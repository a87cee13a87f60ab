package formlogic

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/formlogic/internal/arith"
	"github.com/lychee-technology/formlogic/internal/collections"
)

//go:embed form-definition-schema.json
var formDefinitionSchemaData []byte

var formDefinitionSchema *jsonschema.Resolved

func init() {
	var schema jsonschema.Schema
	if err := json.Unmarshal(formDefinitionSchemaData, &schema); err != nil {
		panic(fmt.Sprintf("formlogic: invalid form definition schema: %v", err))
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		panic(fmt.Sprintf("formlogic: failed to resolve form definition schema: %v", err))
	}
	formDefinitionSchema = resolved
}

// ValidateFormDefinition checks a JSON form definition against the form
// definition schema and then checks that its ids and references hold together.
func ValidateFormDefinition(data []byte) error {
	_, err := ParseFormDefinition(data)
	return err
}

// ParseFormDefinition validates data like ValidateFormDefinition and returns
// the decoded form.
func ParseFormDefinition(data []byte) (*Form, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, NewFormError(ErrorTypeValidation, ErrCodeInvalidJSON, fmt.Sprintf("invalid JSON: %v", err)).WithCause(err)
	}
	if err := formDefinitionSchema.Validate(instance); err != nil {
		return nil, NewFormError(ErrorTypeValidation, ErrCodeSchemaViolation, err.Error()).WithCause(err)
	}
	form, err := ParseForm(data)
	if err != nil {
		return nil, err
	}
	if err := ValidateForm(form); err != nil {
		return nil, err
	}
	return form, nil
}

// ValidateForm checks the referential integrity of a decoded form: unique
// ids, known field types and operators, references to existing fields and
// well formed formula tokens. Every problem is reported.
func ValidateForm(form *Form) error {
	errs := NewValidationErrors()

	fieldIDs := collections.NewSet[string]()
	sectionIDs := collections.NewSet[string]()
	for _, section := range form.Sections {
		if !sectionIDs.Add(section.ID) {
			errs.Add(NewFormError(ErrorTypeValidation, ErrCodeDuplicateID, "duplicate section id").
				WithForm(form.ID).WithDetail("sectionId", section.ID))
		}
		for _, field := range section.Fields {
			if !fieldIDs.Add(field.ID) {
				errs.Add(NewFormError(ErrorTypeValidation, ErrCodeDuplicateID, "duplicate field id").
					WithForm(form.ID).WithField(field.ID))
			}
		}
	}

	v := &integrityCheck{formID: form.ID, fields: fieldIDs, errs: errs}
	for _, section := range form.Sections {
		v.visibility(section.ID, section.VisibilityCondition)
		for _, field := range section.Fields {
			if !field.Type.Valid() {
				errs.Add(NewValidationError(field.ID, fmt.Sprintf("unknown field type %q", field.Type)).WithForm(form.ID))
			}
			v.visibility(field.ID, field.VisibilityCondition)
			if field.Type != FieldTypeCalculated {
				continue
			}
			if field.Formula == nil {
				errs.Add(NewFormError(ErrorTypeValidation, ErrCodeMissingFormula, "calculated field has no formula").
					WithForm(form.ID).WithField(field.ID))
				continue
			}
			v.expressions(field.ID, field.Formula.Expressions)
			for _, conditional := range field.Formula.ConditionalFormulas {
				v.condition(field.ID, conditional.Condition)
				v.expressions(field.ID, conditional.Expressions)
			}
		}
	}
	return errs.ToError()
}

type integrityCheck struct {
	formID string
	fields *collections.Set[string]
	errs   *ValidationErrors
}

func (c *integrityCheck) visibility(owner string, vc *VisibilityCondition) {
	if vc == nil {
		return
	}
	if vc.LogicalOperator != "" && !vc.LogicalOperator.Valid() {
		c.errs.Add(NewFormError(ErrorTypeValidation, ErrCodeUnknownOperator,
			fmt.Sprintf("unknown logical operator %q", vc.LogicalOperator)).WithForm(c.formID).WithField(owner))
	}
	for _, cond := range vc.Conditions {
		c.condition(owner, cond)
	}
}

func (c *integrityCheck) condition(owner string, cond SingleCondition) {
	if !cond.Operator.Valid() {
		c.errs.Add(NewFormError(ErrorTypeValidation, ErrCodeUnknownOperator,
			fmt.Sprintf("unknown operator %q", cond.Operator)).WithForm(c.formID).WithField(owner))
	}
	if !c.fields.Contains(cond.SourceFieldID) {
		c.errs.Add(NewReferenceError(owner, cond.SourceFieldID).WithForm(c.formID))
	}
}

func (c *integrityCheck) expressions(owner string, exprs []Expression) {
	for i, expr := range exprs {
		var ok bool
		switch expr.Type {
		case ExpressionField:
			if !c.fields.Contains(expr.Value) {
				c.errs.Add(NewReferenceError(owner, expr.Value).WithForm(c.formID).WithDetail("token", i))
			}
			continue
		case ExpressionOperator:
			ok = arith.IsOperator(expr.Value)
		case ExpressionNumber:
			ok = arith.IsNumber(expr.Value)
		}
		if !ok {
			c.errs.Add(NewFormError(ErrorTypeValidation, ErrCodeInvalidToken,
				fmt.Sprintf("invalid %s token %q", expr.Type, expr.Value)).
				WithForm(c.formID).WithField(owner).WithDetail("token", i))
		}
	}
}
