package formlogic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValueKind tags the representation held by a Value.
type ValueKind string

const (
	KindNone    ValueKind = "none"
	KindString  ValueKind = "string"
	KindNumber  ValueKind = "number"
	KindBool    ValueKind = "bool"
	KindStrings ValueKind = "strings"
	KindBools   ValueKind = "bools"
	KindTable   ValueKind = "table"
)

// Value is the current value of a field. The zero Value holds nothing.
type Value struct {
	kind  ValueKind
	str   string
	num   float64
	b     bool
	strs  []string
	bools []bool
	table *TableData
}

// TableColumnType is the input type of a table column.
type TableColumnType string

const (
	TableColumnText   TableColumnType = "text"
	TableColumnNumber TableColumnType = "number"
	TableColumnSelect TableColumnType = "select"
)

type TableColumn struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    TableColumnType `json:"type"`
	Options []string        `json:"options,omitempty"`
}

type TableRow struct {
	ID    string         `json:"id"`
	Cells map[string]any `json:"cells"`
}

// TableData is the value of a table field.
type TableData struct {
	Columns []TableColumn `json:"columns"`
	Rows    []TableRow    `json:"rows"`
}

func (t *TableData) clone() *TableData {
	if t == nil {
		return nil
	}
	out := &TableData{
		Columns: make([]TableColumn, len(t.Columns)),
		Rows:    make([]TableRow, len(t.Rows)),
	}
	for i, c := range t.Columns {
		out.Columns[i] = c
		if c.Options != nil {
			out.Columns[i].Options = append([]string(nil), c.Options...)
		}
	}
	for i, r := range t.Rows {
		cells := make(map[string]any, len(r.Cells))
		for k, v := range r.Cells {
			cells[k] = v
		}
		out.Rows[i] = TableRow{ID: r.ID, Cells: cells}
	}
	return out
}

func NoValue() Value { return Value{} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func StringsValue(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: KindStrings, strs: append([]string(nil), items...)}
}

func BoolsValue(items ...bool) Value {
	if items == nil {
		items = []bool{}
	}
	return Value{kind: KindBools, bools: append([]bool(nil), items...)}
}

func TableValue(t TableData) Value {
	return Value{kind: KindTable, table: t.clone()}
}

// Kind returns the representation tag; the zero Value reports KindNone.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return KindNone
	}
	return v.kind
}

func (v Value) IsNone() bool { return v.Kind() == KindNone }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsStrings() ([]string, bool) {
	return append([]string(nil), v.strs...), v.kind == KindStrings
}

func (v Value) AsBools() ([]bool, bool) {
	return append([]bool(nil), v.bools...), v.kind == KindBools
}

func (v Value) AsTable() (*TableData, bool) {
	return v.table.clone(), v.kind == KindTable
}

// Clone returns a copy that shares no backing storage with v.
func (v Value) Clone() Value {
	out := v
	if v.strs != nil {
		out.strs = append([]string(nil), v.strs...)
	}
	if v.bools != nil {
		out.bools = append([]bool(nil), v.bools...)
	}
	out.table = v.table.clone()
	return out
}

// String renders the value the way it is compared by the text operators.
func (v Value) String() string {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return strings.Join(v.strs, ",")
	case KindBools:
		parts := make([]string, len(v.bools))
		for i, b := range v.bools {
			parts[i] = strconv.FormatBool(b)
		}
		return strings.Join(parts, ",")
	case KindTable:
		data, err := json.Marshal(v.table)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

// Number coerces the value to a float. Values without a numeric reading
// return NaN.
func (v Value) Number() float64 {
	switch v.Kind() {
	case KindString:
		return parseNumeric(v.str)
	case KindNumber:
		return v.num
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindStrings:
		switch len(v.strs) {
		case 0:
			return 0
		case 1:
			return parseNumeric(v.strs[0])
		}
	case KindBools:
		switch len(v.bools) {
		case 0:
			return 0
		case 1:
			return BoolValue(v.bools[0]).Number()
		}
	}
	return math.NaN()
}

// Truthy is false for no value, the empty string, false, 0 and NaN.
func (v Value) Truthy() bool {
	switch v.Kind() {
	case KindNone:
		return false
	case KindString:
		return v.str != ""
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Len returns the length of strings and lists. ok is false for kinds
// without a length.
func (v Value) Len() (n int, ok bool) {
	switch v.Kind() {
	case KindString:
		return utf8.RuneCountInString(v.str), true
	case KindStrings:
		return len(v.strs), true
	case KindBools:
		return len(v.bools), true
	}
	return 0, false
}

// IsEmpty is true when the value is falsy or has zero length.
func (v Value) IsEmpty() bool {
	if !v.Truthy() {
		return true
	}
	n, ok := v.Len()
	return ok && n == 0
}

// IsNotEmpty is true when the value is truthy and has a non-zero length.
func (v Value) IsNotEmpty() bool {
	if !v.Truthy() {
		return false
	}
	n, ok := v.Len()
	return ok && n > 0
}

// parseNumeric reads a decimal literal; blank input reads as 0.
func parseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(s)
	if strings.ContainsAny(lower, "xnip_") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// FormatNumber prints f in shortest round-trip form, switching to exponent
// notation outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return json.Marshal(FormatNumber(v.num))
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindStrings:
		return json.Marshal(v.strs)
	case KindBools:
		return json.Marshal(v.bools)
	case KindTable:
		return json.Marshal(v.table)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the kind from the JSON token. An empty array decodes
// as an empty string list; Field decoding re-tags it for the field type.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		if len(raw) == 0 {
			*v = StringsValue()
			return nil
		}
		var bools []bool
		if err := json.Unmarshal(trimmed, &bools); err == nil {
			*v = BoolsValue(bools...)
			return nil
		}
		var strs []string
		if err := json.Unmarshal(trimmed, &strs); err == nil {
			*v = StringsValue(strs...)
			return nil
		}
		return fmt.Errorf("field value array must hold only strings or only booleans")
	case '{':
		var table TableData
		if err := json.Unmarshal(trimmed, &table); err != nil {
			return fmt.Errorf("field value object is not a table: %w", err)
		}
		*v = Value{kind: KindTable, table: &table}
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return err
		}
		*v = NumberValue(f)
	}
	return nil
}

// DefaultValue returns the value a freshly typed field starts with.
func DefaultValue(t FieldType, optionCount int, multiSelect bool) Value {
	switch t {
	case FieldTypeMultiCheckbox:
		return BoolsValue(make([]bool, optionCount)...)
	case FieldTypeSelect:
		if multiSelect {
			return StringsValue()
		}
	case FieldTypeTable:
		return TableValue(TableData{Columns: []TableColumn{}, Rows: []TableRow{}})
	}
	return NoValue()
}

// conformValue re-tags shape-ambiguous decodings for the field type.
func conformValue(t FieldType, v Value) Value {
	if t == FieldTypeMultiCheckbox && v.Kind() == KindStrings && len(v.strs) == 0 {
		return BoolsValue()
	}
	return v
}

// UnmarshalJSON decodes a field and conforms its value to the field type.
func (f *Field) UnmarshalJSON(data []byte) error {
	type fieldAlias Field
	var alias fieldAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*f = Field(alias)
	f.Value = conformValue(f.Type, f.Value)
	return nil
}

// ChangeType switches the field type and resets the value to the new type's
// default. The formula is dropped when the field stops being calculated.
func (f *Field) ChangeType(t FieldType) {
	f.Type = t
	if t != FieldTypeCalculated {
		f.Formula = nil
	}
	if t != FieldTypeSelect {
		f.IsMultiSelect = false
	}
	f.Value = DefaultValue(t, len(f.Options), f.IsMultiSelect)
}

// SetOptions replaces the option list. Multi-checkbox values are resized to
// match, keeping the checks of options that still exist.
func (f *Field) SetOptions(options []string) {
	f.Options = append([]string(nil), options...)
	if f.Type != FieldTypeMultiCheckbox {
		return
	}
	current, _ := f.Value.AsBools()
	next := make([]bool, len(options))
	copy(next, current)
	f.Value = BoolsValue(next...)
}
