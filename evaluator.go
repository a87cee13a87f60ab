package formlogic

import (
	"github.com/lychee-technology/formlogic/internal/collections"
	"github.com/lychee-technology/formlogic/internal/telemetry"
	"go.uber.org/zap"
)

// FormEvaluator evaluates visibility and calculated values for one form
// snapshot. Calculated fields that reference other calculated fields see the
// computed value of the referenced field. Every field on a reference cycle
// resolves to the FormulaError sentinel, whichever field is asked for first.
//
// A FormEvaluator copies the sections it is given and never mutates them.
// It memoises results and is not safe for concurrent use.
type FormEvaluator struct {
	sections  []Section
	fields    map[string]*Field
	sectionOf map[string]int
	stored    FieldValues
	results   map[string]Result
	logger    *zap.Logger

	// path is the chain of fields being computed. open holds every field
	// visited whose strongly connected component has not closed yet.
	path    *collections.Path[string]
	open    *collections.Path[string]
	visits  map[string]*visit
	looped  *collections.Set[string]
	counter int
}

// visit numbers a field in discovery order. low is the smallest discovery
// number reachable from the field through fields that are still open.
type visit struct {
	index int
	low   int
}

var cycleResult = Result{Value: FormulaError, MatchedIndex: -1}

// EvaluatorOption configures a FormEvaluator.
type EvaluatorOption func(*FormEvaluator)

// WithLogger sets the logger used for cycle and lookup diagnostics.
func WithLogger(logger *zap.Logger) EvaluatorOption {
	return func(e *FormEvaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithValues overlays submission values on the fields of the definition.
// Ids that do not name a field are ignored.
func WithValues(values FieldValues) EvaluatorOption {
	return func(e *FormEvaluator) {
		for id, v := range values {
			if field, ok := e.fields[id]; ok {
				e.stored[id] = conformValue(field.Type, v.Clone())
			}
		}
	}
}

// NewFormEvaluator builds an evaluator over a copy of sections.
func NewFormEvaluator(sections []Section, opts ...EvaluatorOption) *FormEvaluator {
	e := &FormEvaluator{
		sections:  CloneSections(sections),
		fields:    make(map[string]*Field),
		sectionOf: make(map[string]int),
		results:   make(map[string]Result),
		logger:    zap.NewNop(),
		path:      collections.NewPath[string](),
		open:      collections.NewPath[string](),
		visits:    make(map[string]*visit),
		looped:    collections.NewSet[string](),
	}
	for i := range e.sections {
		for j := range e.sections[i].Fields {
			field := &e.sections[i].Fields[j]
			if _, exists := e.fields[field.ID]; exists {
				continue
			}
			e.fields[field.ID] = field
			e.sectionOf[field.ID] = i
		}
	}
	e.stored = NewFieldValues(e.sections)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lookup resolves a field id for conditions and formulas. Calculated fields
// resolve to their computed display value.
func (e *FormEvaluator) Lookup(fieldID string) (Value, bool) {
	field, ok := e.fields[fieldID]
	if !ok {
		return Value{}, false
	}
	if field.Type == FieldTypeCalculated {
		return StringValue(e.calculate(field).Value), true
	}
	return e.stored[fieldID], true
}

// CalculatedValue evaluates the calculated field with the given id.
func (e *FormEvaluator) CalculatedValue(fieldID string) (Result, error) {
	field, ok := e.fields[fieldID]
	if !ok {
		return Result{}, NewFieldNotFoundError(fieldID)
	}
	if field.Type != FieldTypeCalculated {
		return Result{}, NewFormError(ErrorTypeValidation, ErrCodeNotCalculated, "field is not a calculated field").WithField(fieldID)
	}
	return e.calculate(field), nil
}

// calculate resolves a calculated field. References are walked depth first
// and grouped into strongly connected components as they close, so a field
// whose value is still open reads as FormulaError and every member of a
// cycle is stored as FormulaError once its component closes.
func (e *FormEvaluator) calculate(field *Field) Result {
	if r, ok := e.results[field.ID]; ok {
		return r
	}
	caller, hasCaller := e.path.Top()
	if e.open.Contains(field.ID) {
		e.looped.Add(field.ID)
		if hasCaller {
			e.lowerLink(caller, e.visits[field.ID].index)
		}
		return cycleResult
	}

	v := &visit{index: e.counter, low: e.counter}
	e.counter++
	e.visits[field.ID] = v
	e.open.Push(field.ID)
	e.path.Push(field.ID)
	r := field.Formula.Evaluate(e)
	e.path.Pop()

	if hasCaller {
		e.lowerLink(caller, v.low)
	}
	if v.low < v.index {
		return cycleResult
	}

	members := e.open.From(field.ID)
	for range members {
		e.open.Pop()
	}
	if len(members) > 1 || e.looped.Contains(field.ID) {
		e.logger.Debug("calculated field reference cycle",
			zap.String("field", field.ID), zap.Strings("cycle", members))
		telemetry.EmitCycle(field.ID, len(members))
		for _, id := range members {
			e.results[id] = cycleResult
		}
		return cycleResult
	}

	if r.Value == FormulaError {
		e.logger.Debug("calculated field evaluated to error", zap.String("field", field.ID))
	}
	telemetry.EmitConditionalMatch(field.ID, r.MatchedIndex)
	e.results[field.ID] = r
	return r
}

func (e *FormEvaluator) lowerLink(fieldID string, index int) {
	if v, ok := e.visits[fieldID]; ok && index < v.low {
		v.low = index
	}
}

// IsFieldVisible reports whether the field is shown. A field inside a hidden
// section is hidden.
func (e *FormEvaluator) IsFieldVisible(fieldID string, editMode bool) (bool, error) {
	field, ok := e.fields[fieldID]
	if !ok {
		return false, NewFieldNotFoundError(fieldID)
	}
	if !IsSectionVisible(&e.sections[e.sectionOf[fieldID]], editMode, e) {
		return false, nil
	}
	return IsFieldVisible(field, editMode, e), nil
}

// IsSectionVisible reports whether the section with the given id is shown.
func (e *FormEvaluator) IsSectionVisible(sectionID string, editMode bool) (bool, error) {
	for i := range e.sections {
		if e.sections[i].ID == sectionID {
			return IsSectionVisible(&e.sections[i], editMode, e), nil
		}
	}
	return false, NewFormError(ErrorTypeNotFound, ErrCodeSectionNotFound, "section not found").WithField(sectionID)
}

// FieldSnapshot is the evaluated state of one field.
type FieldSnapshot struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Type       FieldType `json:"type"`
	Visible    bool      `json:"visible"`
	Value      Value     `json:"value"`
	Calculated *Result   `json:"calculated,omitempty"`
}

// SectionSnapshot is the evaluated state of one section.
type SectionSnapshot struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Visible bool            `json:"visible"`
	Fields  []FieldSnapshot `json:"fields"`
}

// FormSnapshot is the evaluated state of a whole form, in form order.
type FormSnapshot struct {
	EditMode bool              `json:"editMode"`
	Sections []SectionSnapshot `json:"sections"`
}

// Snapshot evaluates every section and field.
func (e *FormEvaluator) Snapshot(editMode bool) FormSnapshot {
	snap := FormSnapshot{EditMode: editMode, Sections: make([]SectionSnapshot, 0, len(e.sections))}
	for i := range e.sections {
		section := &e.sections[i]
		sectionVisible := IsSectionVisible(section, editMode, e)
		ss := SectionSnapshot{
			ID:      section.ID,
			Title:   section.Title,
			Visible: sectionVisible,
			Fields:  make([]FieldSnapshot, 0, len(section.Fields)),
		}
		for j := range section.Fields {
			field := &section.Fields[j]
			fs := FieldSnapshot{
				ID:      field.ID,
				Label:   field.Label,
				Type:    field.Type,
				Visible: sectionVisible && IsFieldVisible(field, editMode, e),
				Value:   e.valueOf(field),
			}
			if field.Type == FieldTypeCalculated {
				r := e.calculate(e.fields[field.ID])
				fs.Calculated = &r
				fs.Value = StringValue(r.Value)
			}
			ss.Fields = append(ss.Fields, fs)
		}
		snap.Sections = append(snap.Sections, ss)
	}
	return snap
}

// valueOf returns the stored value for the first field with this id, or the
// field's own value for later duplicates.
func (e *FormEvaluator) valueOf(field *Field) Value {
	if e.fields[field.ID] == field {
		return e.stored[field.ID].Clone()
	}
	return field.Value.Clone()
}
