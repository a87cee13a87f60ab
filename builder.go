package formlogic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/formlogic/internal/arith"
)

// defaultOptions seeds choice fields created in the editor.
var defaultOptions = []string{"Option 1", "Option 2", "Option 3"}

// NewField creates a field of type t with a fresh id and the default value
// for its type.
func NewField(t FieldType, label string) Field {
	f := Field{
		ID:          uuid.NewString(),
		Type:        t,
		Label:       label,
		Placeholder: fmt.Sprintf("Enter %s...", t),
	}
	if f.Label == "" {
		f.Label = fmt.Sprintf("New %s field", strings.ReplaceAll(string(t), "_", " "))
	}
	switch t {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeMultiCheckbox:
		f.Options = slices.Clone(defaultOptions)
	case FieldTypeCalculated:
		f.Formula = &CalculationFormula{}
	}
	f.Value = DefaultValue(t, len(f.Options), false)
	return f
}

// NewSection creates an expanded, empty section with a fresh id.
func NewSection(title string) Section {
	return Section{
		ID:         uuid.NewString(),
		Title:      title,
		Fields:     []Field{},
		IsExpanded: true,
	}
}

// FormulaBuilder assembles a token sequence the way the formula editor does,
// refusing edits that cannot lead to a valid expression.
type FormulaBuilder struct {
	exprs []Expression
}

// NewFormulaBuilder starts from a copy of exprs.
func NewFormulaBuilder(exprs ...Expression) *FormulaBuilder {
	return &FormulaBuilder{exprs: slices.Clone(exprs)}
}

func (b *FormulaBuilder) last() (Expression, bool) {
	if len(b.exprs) == 0 {
		return Expression{}, false
	}
	return b.exprs[len(b.exprs)-1], true
}

// closesOperand reports whether e ends an operand.
func closesOperand(e Expression) bool {
	return e.Type == ExpressionField || e.Type == ExpressionNumber ||
		(e.Type == ExpressionOperator && e.Value == ")")
}

// AddField appends a field token, joining it to a preceding operand with '+'.
func (b *FormulaBuilder) AddField(fieldID string) {
	if last, ok := b.last(); ok && (last.Type == ExpressionField || last.Type == ExpressionNumber) {
		b.exprs = append(b.exprs, Op("+"))
	}
	b.exprs = append(b.exprs, FieldRef(fieldID))
}

// AddOperator appends an operator token and reports whether it was accepted.
func (b *FormulaBuilder) AddOperator(op string) bool {
	if !arith.IsOperator(op) {
		return false
	}
	last, ok := b.last()
	switch op {
	case "(":
		if ok && closesOperand(last) {
			return false
		}
	case ")":
		if !ok || !closesOperand(last) || b.openParens() <= 0 {
			return false
		}
	default:
		if !ok || !closesOperand(last) {
			return false
		}
	}
	b.exprs = append(b.exprs, Op(op))
	return true
}

func (b *FormulaBuilder) openParens() int {
	depth := 0
	for _, e := range b.exprs {
		if e.Type != ExpressionOperator {
			continue
		}
		switch e.Value {
		case "(":
			depth++
		case ")":
			depth--
		}
	}
	return depth
}

// AddNumber appends digits (or a decimal point) and reports whether they
// were accepted. Digits typed after a number extend it.
func (b *FormulaBuilder) AddNumber(digits string) bool {
	if digits == "" || strings.Trim(digits, "0123456789.") != "" {
		return false
	}
	last, ok := b.last()
	if ok && last.Type == ExpressionNumber {
		literal := last.Value + digits
		if strings.Count(literal, ".") > 1 {
			return false
		}
		b.exprs[len(b.exprs)-1].Value = literal
		return true
	}
	if strings.Count(digits, ".") > 1 {
		return false
	}
	if ok && last.Type == ExpressionField {
		b.exprs = append(b.exprs, Op("+"))
	}
	b.exprs = append(b.exprs, Num(digits))
	return true
}

// Remove deletes the token at index. Out of range indexes are ignored.
func (b *FormulaBuilder) Remove(index int) {
	if index < 0 || index >= len(b.exprs) {
		return
	}
	b.exprs = slices.Delete(b.exprs, index, index+1)
}

func (b *FormulaBuilder) Clear() {
	b.exprs = nil
}

// Expressions returns a copy of the tokens built so far.
func (b *FormulaBuilder) Expressions() []Expression {
	return slices.Clone(b.exprs)
}

// Len returns the number of tokens.
func (b *FormulaBuilder) Len() int {
	return len(b.exprs)
}
