package formlogic

// IsFieldVisible reports whether a field is shown. In edit mode every field
// is shown so the designer can edit it; otherwise the field's visibility
// condition decides. Hidden fields keep their values.
func IsFieldVisible(field *Field, editMode bool, lookup FieldLookup) bool {
	if editMode {
		return true
	}
	return EvaluateCondition(field.VisibilityCondition, lookup)
}

// IsSectionVisible applies the same rule to a section's own condition.
func IsSectionVisible(section *Section, editMode bool, lookup FieldLookup) bool {
	if editMode {
		return true
	}
	return EvaluateCondition(section.VisibilityCondition, lookup)
}
