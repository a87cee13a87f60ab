package formlogic

import (
	"time"

	"github.com/google/uuid"
)

// Role is the part a user plays in the maker/checker flow.
type Role string

const (
	RoleMaker   Role = "maker"
	RoleChecker Role = "checker"
)

// SubmissionStatus is the position of a submission in the approval flow.
type SubmissionStatus string

const (
	SubmissionDraft           SubmissionStatus = "draft"
	SubmissionPendingApproval SubmissionStatus = "pending_approval"
	SubmissionApproved        SubmissionStatus = "approved"
	SubmissionRejected        SubmissionStatus = "rejected"
)

// Submission is one filled-in copy of a form.
type Submission struct {
	ID           uuid.UUID        `json:"id"`
	FormID       string           `json:"formId"`
	Name         string           `json:"name"`
	Sections     []Section        `json:"sections"`
	Status       SubmissionStatus `json:"status"`
	Version      int              `json:"version"`
	SubmittedBy  string           `json:"submittedBy,omitempty"`
	ReviewedBy   string           `json:"reviewedBy,omitempty"`
	Comments     string           `json:"comments,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastModified time.Time        `json:"lastModified"`
}

// NewSubmission starts a draft from a copy of the form sections with every
// input reset to its blank value.
func NewSubmission(formID, name string, sections []Section, version int) *Submission {
	copied := CloneSections(sections)
	for i := range copied {
		for j := range copied[i].Fields {
			f := &copied[i].Fields[j]
			f.Value = blankValue(f)
		}
	}
	now := time.Now().UTC()
	return &Submission{
		ID:           uuid.New(),
		FormID:       formID,
		Name:         name,
		Sections:     copied,
		Status:       SubmissionDraft,
		Version:      version,
		CreatedAt:    now,
		LastModified: now,
	}
}

func blankValue(f *Field) Value {
	switch f.Type {
	case FieldTypeCheckbox:
		return BoolValue(false)
	case FieldTypeMultiCheckbox:
		return BoolsValue(make([]bool, len(f.Options))...)
	case FieldTypeSelect:
		if f.IsMultiSelect {
			return StringsValue()
		}
	case FieldTypeTable:
		columns := []TableColumn{}
		if t, ok := f.Value.AsTable(); ok && t.Columns != nil {
			columns = t.Columns
		}
		return TableValue(TableData{Columns: columns, Rows: []TableRow{}})
	}
	return StringValue("")
}

// CanEdit reports whether role may change the submission's values. Makers
// edit drafts and rejected submissions; checkers only review.
func (s *Submission) CanEdit(role Role) bool {
	if role != RoleMaker {
		return false
	}
	return s.Status == SubmissionDraft || s.Status == SubmissionRejected
}

// SetValue stores a value for the field with the given id.
func (s *Submission) SetValue(role Role, fieldID string, v Value) error {
	if !s.CanEdit(role) {
		return NewTransitionError(s.Status, "edit").WithDetail("role", string(role))
	}
	field, ok := findField(s.Sections, fieldID)
	if !ok {
		return NewFieldNotFoundError(fieldID).WithForm(s.FormID)
	}
	if field.Type == FieldTypeCalculated {
		return NewFormError(ErrorTypeValidation, ErrCodeNotCalculated, "calculated fields are computed").WithField(fieldID)
	}
	field.Value = conformValue(field.Type, v.Clone())
	s.touch()
	return nil
}

// Submit sends a draft or rejected submission for approval.
func (s *Submission) Submit(by, comments string) error {
	if s.Status != SubmissionDraft && s.Status != SubmissionRejected {
		return NewTransitionError(s.Status, "submit")
	}
	s.Status = SubmissionPendingApproval
	s.SubmittedBy = by
	s.ReviewedBy = ""
	s.Comments = comments
	s.touch()
	return nil
}

// Approve accepts a pending submission.
func (s *Submission) Approve(by, comments string) error {
	if s.Status != SubmissionPendingApproval {
		return NewTransitionError(s.Status, "approve")
	}
	s.Status = SubmissionApproved
	s.ReviewedBy = by
	s.Comments = comments
	s.touch()
	return nil
}

// Reject sends a pending submission back to its maker. Comments are required.
func (s *Submission) Reject(by, comments string) error {
	if s.Status != SubmissionPendingApproval {
		return NewTransitionError(s.Status, "reject")
	}
	if comments == "" {
		return NewFormError(ErrorTypeWorkflow, ErrCodeCommentsRequired, "rejection requires comments")
	}
	s.Status = SubmissionRejected
	s.ReviewedBy = by
	s.Comments = comments
	s.touch()
	return nil
}

func (s *Submission) touch() {
	s.LastModified = time.Now().UTC()
}

// ValidateRequired returns the ids of required fields that are visible to
// the submitter and still empty, in form order. Calculated fields are
// skipped.
func ValidateRequired(s *Submission) []string {
	eval := NewFormEvaluator(s.Sections)
	var missing []string
	for _, section := range s.Sections {
		for _, field := range section.Fields {
			if !field.Required || field.Type == FieldTypeCalculated {
				continue
			}
			visible, err := eval.IsFieldVisible(field.ID, false)
			if err != nil || !visible {
				continue
			}
			if requiredEmpty(field.Value) {
				missing = append(missing, field.ID)
			}
		}
	}
	return missing
}

// requiredEmpty treats an all-unchecked multi-checkbox and a table without
// rows as unanswered.
func requiredEmpty(v Value) bool {
	if bools, ok := v.AsBools(); ok {
		for _, b := range bools {
			if b {
				return false
			}
		}
		return true
	}
	if t, ok := v.AsTable(); ok {
		return len(t.Rows) == 0
	}
	return v.IsEmpty()
}

// ValidateSubmission wraps ValidateRequired in a ValidationErrors.
func ValidateSubmission(s *Submission) error {
	errs := NewValidationErrors()
	for _, id := range ValidateRequired(s) {
		errs.Add(NewFormError(ErrorTypeValidation, ErrCodeRequiredFieldEmpty, "required field is empty").
			WithForm(s.FormID).WithField(id))
	}
	return errs.ToError()
}
