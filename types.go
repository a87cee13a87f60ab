package formlogic

import (
	"encoding/json"
	"fmt"
)

// FieldType enumerates the inputs a maker can place in a section.
type FieldType string

const (
	FieldTypeText          FieldType = "text"
	FieldTypeTextarea      FieldType = "textarea"
	FieldTypeNumber        FieldType = "number"
	FieldTypeEmail         FieldType = "email"
	FieldTypePhone         FieldType = "phone"
	FieldTypeDate          FieldType = "date"
	FieldTypeCheckbox      FieldType = "checkbox"
	FieldTypeRadio         FieldType = "radio"
	FieldTypeSelect        FieldType = "select"
	FieldTypeFile          FieldType = "file"
	FieldTypeAddress       FieldType = "address"
	FieldTypeTable         FieldType = "table"
	FieldTypeMultiCheckbox FieldType = "multi_checkbox"
	FieldTypeCalculated    FieldType = "calculated"
	FieldTypeDynamic       FieldType = "dynamic"
)

var fieldTypes = map[FieldType]struct{}{
	FieldTypeText: {}, FieldTypeTextarea: {}, FieldTypeNumber: {}, FieldTypeEmail: {},
	FieldTypePhone: {}, FieldTypeDate: {}, FieldTypeCheckbox: {}, FieldTypeRadio: {},
	FieldTypeSelect: {}, FieldTypeFile: {}, FieldTypeAddress: {}, FieldTypeTable: {},
	FieldTypeMultiCheckbox: {}, FieldTypeCalculated: {}, FieldTypeDynamic: {},
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Operator is the comparison applied by a SingleCondition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
)

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorNotContains,
		OperatorGreaterThan, OperatorLessThan, OperatorIsEmpty, OperatorIsNotEmpty,
		OperatorStartsWith, OperatorEndsWith:
		return true
	}
	return false
}

// Unary reports whether the operator ignores the comparand.
func (o Operator) Unary() bool {
	return o == OperatorIsEmpty || o == OperatorIsNotEmpty
}

type LogicalOperator string

const (
	LogicAnd LogicalOperator = "and"
	LogicOr  LogicalOperator = "or"
)

func (l LogicalOperator) Valid() bool {
	return l == LogicAnd || l == LogicOr
}

// SingleCondition compares the value of one source field against a comparand.
type SingleCondition struct {
	SourceFieldID string   `json:"sourceFieldId"`
	Operator      Operator `json:"operator"`
	Value         string   `json:"value"`
}

// VisibilityCondition combines single conditions with and/or.
type VisibilityCondition struct {
	Conditions      []SingleCondition `json:"conditions"`
	LogicalOperator LogicalOperator   `json:"logicalOperator"`
}

// ExpressionType identifies a formula token.
type ExpressionType string

const (
	ExpressionField    ExpressionType = "field"
	ExpressionOperator ExpressionType = "operator"
	ExpressionNumber   ExpressionType = "number"
)

// Expression is a single formula token. Field tokens carry a field id,
// operator tokens one of + - * / ( ) % ^ and number tokens a numeric literal.
type Expression struct {
	Type  ExpressionType `json:"type"`
	Value string         `json:"value"`
}

// FieldRef returns a field token.
func FieldRef(id string) Expression { return Expression{Type: ExpressionField, Value: id} }

// Op returns an operator token.
func Op(symbol string) Expression { return Expression{Type: ExpressionOperator, Value: symbol} }

// Num returns a number token.
func Num(literal string) Expression { return Expression{Type: ExpressionNumber, Value: literal} }

// ConditionalFormula replaces the default formula when its guard holds.
type ConditionalFormula struct {
	Condition   SingleCondition `json:"condition"`
	Expressions []Expression    `json:"expressions"`
}

// CalculationFormula is the formula attached to a calculated field.
type CalculationFormula struct {
	Expressions         []Expression         `json:"expressions"`
	ConditionalFormulas []ConditionalFormula `json:"conditionalFormulas,omitempty"`
	DisplayFormat       string               `json:"displayFormat,omitempty"`
}

// Field is a single form input. Value always has the shape demanded by Type.
type Field struct {
	ID                  string               `json:"id"`
	Type                FieldType            `json:"type"`
	Label               string               `json:"label"`
	Title               string               `json:"title,omitempty"`
	Placeholder         string               `json:"placeholder,omitempty"`
	Value               Value                `json:"value"`
	Required            bool                 `json:"required,omitempty"`
	Options             []string             `json:"options,omitempty"`
	IsMultiSelect       bool                 `json:"isMultiSelect,omitempty"`
	VisibilityCondition *VisibilityCondition `json:"visibilityCondition,omitempty"`
	Order               int                  `json:"order"`
	Formula             *CalculationFormula  `json:"formula,omitempty"`
}

// Section is an ordered, named group of fields.
type Section struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Fields              []Field              `json:"fields"`
	IsExpanded          bool                 `json:"isExpanded"`
	Order               int                  `json:"order"`
	VisibilityCondition *VisibilityCondition `json:"visibilityCondition,omitempty"`
}

// FormStatus is the design-time status of a form definition.
type FormStatus string

const (
	FormStatusDraft     FormStatus = "draft"
	FormStatusSubmitted FormStatus = "submitted"
	FormStatusApproved  FormStatus = "approved"
	FormStatusRejected  FormStatus = "rejected"
)

// Form is a complete form definition as authored by a maker.
type Form struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Sections        []Section  `json:"sections"`
	Status          FormStatus `json:"status,omitempty"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	CreatedAt       string     `json:"createdAt,omitempty"`
	LastSaved       string     `json:"lastSaved,omitempty"`
	SubmittedBy     string     `json:"submittedBy,omitempty"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	RejectedBy      string     `json:"rejectedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// FindField returns the first field with the given id across all sections.
func (f *Form) FindField(id string) (*Field, bool) {
	return findField(f.Sections, id)
}

func findField(sections []Section, id string) (*Field, bool) {
	for i := range sections {
		for j := range sections[i].Fields {
			if sections[i].Fields[j].ID == id {
				return &sections[i].Fields[j], true
			}
		}
	}
	return nil, false
}

// ParseForm decodes a JSON form definition without schema validation.
func ParseForm(data []byte) (*Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, NewFormError(ErrorTypeValidation, ErrCodeInvalidJSON, fmt.Sprintf("invalid form definition: %v", err)).WithCause(err)
	}
	return &form, nil
}

// CloneSections returns a deep copy of sections so that callers can hand out
// snapshots without sharing value slices.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s
		out[i].VisibilityCondition = s.VisibilityCondition.clone()
		out[i].Fields = make([]Field, len(s.Fields))
		for j, f := range s.Fields {
			out[i].Fields[j] = f.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	out.Value = f.Value.Clone()
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	out.VisibilityCondition = f.VisibilityCondition.clone()
	out.Formula = f.Formula.clone()
	return out
}

func (vc *VisibilityCondition) clone() *VisibilityCondition {
	if vc == nil {
		return nil
	}
	out := *vc
	out.Conditions = append([]SingleCondition(nil), vc.Conditions...)
	return &out
}

func (cf *CalculationFormula) clone() *CalculationFormula {
	if cf == nil {
		return nil
	}
	out := *cf
	out.Expressions = append([]Expression(nil), cf.Expressions...)
	if cf.ConditionalFormulas != nil {
		out.ConditionalFormulas = make([]ConditionalFormula, len(cf.ConditionalFormulas))
		for i, c := range cf.ConditionalFormulas {
			out.ConditionalFormulas[i] = ConditionalFormula{
				Condition:   c.Condition,
				Expressions: append([]Expression(nil), c.Expressions...),
			}
		}
	}
	return &out
}
