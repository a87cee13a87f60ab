package formlogic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeReference  ErrorType = "reference"
	ErrorTypeWorkflow   ErrorType = "workflow"
	ErrorTypeInternal   ErrorType = "internal"
)

// FormError represents errors raised outside the evaluation path: definition
// validation, registry loading and submission workflow transitions.
type FormError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	FormID  string         `json:"formId,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FormError) Error() string {
	if e.FormID != "" && e.Field != "" {
		return fmt.Sprintf("[%s:%s] form %s field '%s': %s", e.Type, e.Code, e.FormID, e.Field, e.Message)
	}
	if e.FormID != "" {
		return fmt.Sprintf("[%s:%s] form %s: %s", e.Type, e.Code, e.FormID, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *FormError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a FormError
func (e *FormError) WithDetail(key string, value any) *FormError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a FormError
func (e *FormError) WithCause(cause error) *FormError {
	e.Cause = cause
	return e
}

// WithForm adds form context to a FormError
func (e *FormError) WithForm(formID string) *FormError {
	e.FormID = formID
	return e
}

// WithField adds field context to a FormError
func (e *FormError) WithField(field string) *FormError {
	e.Field = field
	return e
}

const (
	// Definition errors
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeSchemaViolation    = "SCHEMA_VIOLATION"
	ErrCodeDuplicateID        = "DUPLICATE_ID"
	ErrCodeUnknownOperator    = "UNKNOWN_OPERATOR"
	ErrCodeDanglingReference  = "DANGLING_REFERENCE"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeMissingFormula     = "MISSING_FORMULA"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeRequiredFieldEmpty = "REQUIRED_FIELD_EMPTY"

	// Lookup errors
	ErrCodeFormNotFound     = "FORM_NOT_FOUND"
	ErrCodeFieldNotFound    = "FIELD_NOT_FOUND"
	ErrCodeSectionNotFound  = "SECTION_NOT_FOUND"
	ErrCodeNotCalculated    = "NOT_CALCULATED"
	ErrCodeRegistryLoadFail = "REGISTRY_LOAD_FAILED"

	// Workflow errors
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeCommentsRequired  = "COMMENTS_REQUIRED"

	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewFormError creates a new FormError
func NewFormError(errorType ErrorType, code, message string) *FormError {
	return &FormError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *FormError {
	return &FormError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewReferenceError creates a reference error for a dangling field id.
func NewReferenceError(field, sourceFieldID string) *FormError {
	return &FormError{
		Type:    ErrorTypeReference,
		Code:    ErrCodeDanglingReference,
		Message: fmt.Sprintf("references unknown field %q", sourceFieldID),
		Field:   field,
		Details: map[string]any{"sourceFieldId": sourceFieldID},
	}
}

// NewFormNotFoundError creates a form not found error
func NewFormNotFoundError(formID string) *FormError {
	return &FormError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeFormNotFound,
		Message: "form not found",
		FormID:  formID,
	}
}

// NewFieldNotFoundError creates a field not found error
func NewFieldNotFoundError(fieldID string) *FormError {
	return &FormError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeFieldNotFound,
		Message: "field not found",
		Field:   fieldID,
	}
}

// NewTransitionError creates a workflow transition error
func NewTransitionError(from SubmissionStatus, action string) *FormError {
	return &FormError{
		Type:    ErrorTypeWorkflow,
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s a submission in status %s", action, from),
		Details: map[string]any{"status": string(from), "action": action},
	}
}

// ValidationErrors collects every problem found in a form definition.
type ValidationErrors struct {
	Errors []*FormError `json:"errors"`
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	if len(ve.Errors) == 1 {
		return ve.Errors[0].Error()
	}
	msgs := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors: %s", len(ve.Errors), strings.Join(msgs, "; "))
}

// Add adds a new error to the collection
func (ve *ValidationErrors) Add(err *FormError) {
	ve.Errors = append(ve.Errors, err)
}

// HasErrors returns true if there are any errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToError returns the ValidationErrors as an error if there are any errors, nil otherwise
func (ve *ValidationErrors) ToError() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*FormError, 0),
	}
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var fe *FormError
	for errors.As(err, &fe) {
		if fe.Type == ErrorTypeValidation {
			return true
		}
		err = fe.Cause
	}
	return false
}

// IsReferenceError checks if an error is a reference error
func IsReferenceError(err error) bool {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Type == ErrorTypeReference
	}
	return false
}

// IsWorkflowError checks if an error is a workflow transition error
func IsWorkflowError(err error) bool {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Type == ErrorTypeWorkflow
	}
	return false
}
