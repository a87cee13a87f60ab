package formlogic

import "strings"

// FieldLookup resolves a field id to the field's current value. ok is false
// when no field with that id exists.
type FieldLookup interface {
	Lookup(fieldID string) (value Value, ok bool)
}

// FieldValues is a snapshot of field values keyed by field id.
type FieldValues map[string]Value

func (fv FieldValues) Lookup(fieldID string) (Value, bool) {
	v, ok := fv[fieldID]
	return v, ok
}

// NewFieldValues builds a lookup over every field of every section. When two
// fields share an id the first one in form order wins.
func NewFieldValues(sections []Section) FieldValues {
	values := make(FieldValues)
	for _, section := range sections {
		for _, field := range section.Fields {
			if _, exists := values[field.ID]; exists {
				continue
			}
			values[field.ID] = field.Value.Clone()
		}
	}
	return values
}

// ConditionPolicy holds the truth values used when a condition cannot be
// evaluated normally.
type ConditionPolicy struct {
	// MissingField is returned when the source field does not exist.
	MissingField bool
	// UnknownOperator is returned for operators outside the known set.
	UnknownOperator bool
}

var (
	// VisibilityPolicy fails open: a dangling reference never hides a field.
	VisibilityPolicy = ConditionPolicy{MissingField: true, UnknownOperator: true}
	// GuardPolicy fails closed: a dangling reference never selects a
	// conditional formula.
	GuardPolicy = ConditionPolicy{MissingField: false, UnknownOperator: false}
)

// EvaluateSingleCondition evaluates one comparison with the visibility policy.
func EvaluateSingleCondition(condition SingleCondition, lookup FieldLookup) bool {
	return condition.Evaluate(lookup, VisibilityPolicy)
}

// Evaluate applies the condition to the source field's value.
func (c SingleCondition) Evaluate(lookup FieldLookup, policy ConditionPolicy) bool {
	source, ok := lookup.Lookup(c.SourceFieldID)
	if !ok {
		return policy.MissingField
	}
	if !c.Operator.Valid() {
		return policy.UnknownOperator
	}
	return compare(c.Operator, source, c.Value)
}

func compare(op Operator, source Value, comparand string) bool {
	switch op {
	case OperatorIsEmpty:
		return source.IsEmpty()
	case OperatorIsNotEmpty:
		return source.IsNotEmpty()
	}
	if source.IsNone() {
		return false
	}
	switch op {
	case OperatorEquals:
		s, ok := source.AsString()
		return ok && s == comparand
	case OperatorNotEquals:
		s, ok := source.AsString()
		return !ok || s != comparand
	case OperatorContains:
		return strings.Contains(source.String(), comparand)
	case OperatorNotContains:
		return !strings.Contains(source.String(), comparand)
	case OperatorStartsWith:
		return strings.HasPrefix(source.String(), comparand)
	case OperatorEndsWith:
		return strings.HasSuffix(source.String(), comparand)
	case OperatorGreaterThan:
		// NaN on either side compares false
		return source.Number() > StringValue(comparand).Number()
	case OperatorLessThan:
		return source.Number() < StringValue(comparand).Number()
	}
	return false
}

// EvaluateCondition evaluates a visibility condition. A nil condition or one
// without conditions is true.
func EvaluateCondition(condition *VisibilityCondition, lookup FieldLookup) bool {
	return condition.Evaluate(lookup, VisibilityPolicy)
}

// Evaluate combines the single conditions. Any logical operator other than
// "and" combines with "or".
func (vc *VisibilityCondition) Evaluate(lookup FieldLookup, policy ConditionPolicy) bool {
	if vc == nil || len(vc.Conditions) == 0 {
		return true
	}
	if vc.LogicalOperator == LogicAnd {
		for _, c := range vc.Conditions {
			if !c.Evaluate(lookup, policy) {
				return false
			}
		}
		return true
	}
	for _, c := range vc.Conditions {
		if c.Evaluate(lookup, policy) {
			return true
		}
	}
	return false
}
