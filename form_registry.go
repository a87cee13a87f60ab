package formlogic

// FormRegistry provides form definition lookup.
// Implementations can load forms from files or other sources.
type FormRegistry interface {
	// GetForm returns the form with the given id or a not found error.
	GetForm(id string) (*Form, error)
	// ListForms returns the ids of all registered forms in ascending order.
	ListForms() []string
}
