package formlogic

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lychee-technology/formlogic/internal/arith"
	"github.com/lychee-technology/formlogic/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel results. They are returned as data and never as errors.
const (
	NoFormulaDefined = "No formula defined"
	FormulaError     = "Error in formula"
)

// Result is the displayed value of a calculated field.
type Result struct {
	Value string `json:"value"`
	// MatchedConditional is set when a conditional formula supplied Value.
	MatchedConditional bool `json:"matchedConditional"`
	// MatchedIndex is the index of the winning conditional formula, -1 when
	// the default formula (or no formula) was used.
	MatchedIndex int `json:"matchedIndex"`
}

// IsSentinel reports whether the value is one of the sentinel strings.
func (r Result) IsSentinel() bool {
	return r.Value == NoFormulaDefined || r.Value == FormulaError
}

// EvaluateFormula evaluates expressions without display formatting.
func EvaluateFormula(expressions []Expression, lookup FieldLookup) string {
	return EvaluateFormulaFormatted(expressions, lookup, "")
}

// EvaluateFormulaFormatted evaluates expressions and applies displayFormat
// to a successful numeric result.
func EvaluateFormulaFormatted(expressions []Expression, lookup FieldLookup, displayFormat string) string {
	if len(expressions) == 0 {
		telemetry.EmitFormulaOutcome("no_formula")
		return NoFormulaDefined
	}
	result, err := computeFormula(expressions, lookup)
	if err != nil {
		zap.S().Debugw("formula evaluation failed", "error", err)
		telemetry.EmitFormulaOutcome("error")
		return FormulaError
	}
	telemetry.EmitFormulaOutcome("ok")
	return FormatResult(result, displayFormat)
}

func computeFormula(expressions []Expression, lookup FieldLookup) (float64, error) {
	src, err := BuildArithmetic(expressions, lookup)
	if err != nil {
		return 0, err
	}
	return arith.Eval(src)
}

// BuildArithmetic substitutes field tokens with their numeric reading and
// concatenates the tokens into an arithmetic source string. Missing fields
// and falsy values read as 0.
func BuildArithmetic(expressions []Expression, lookup FieldLookup) (string, error) {
	var sb strings.Builder
	for i, expr := range expressions {
		switch expr.Type {
		case ExpressionField:
			v, ok := lookup.Lookup(expr.Value)
			if !ok || !v.Truthy() {
				sb.WriteString("0")
				continue
			}
			n := v.Number()
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return "", fmt.Errorf("token %d: field %q has no numeric value (%q)", i, expr.Value, v.String())
			}
			literal := strconv.FormatFloat(n, 'f', -1, 64)
			if n < 0 {
				literal = "(" + literal + ")"
			}
			sb.WriteString(literal)
		case ExpressionOperator:
			if !arith.IsOperator(expr.Value) {
				return "", fmt.Errorf("token %d: unsupported operator %q", i, expr.Value)
			}
			sb.WriteString(expr.Value)
		case ExpressionNumber:
			sb.WriteString(expr.Value)
		default:
			return "", fmt.Errorf("token %d: unknown token type %q", i, expr.Type)
		}
	}
	return sb.String(), nil
}

// FormatResult renders a numeric result. A format containing '%' shows a
// percentage with two decimals, one containing '$' shows dollars with two
// decimals, any other format fixes the decimals to the digits after its
// first '.'; an empty format prints the raw number. Rounding is half away
// from zero on the shortest decimal form of the result. A negative result
// that rounds to zero keeps its sign.
func FormatResult(result float64, displayFormat string) string {
	switch {
	case displayFormat == "":
		return FormatNumber(result)
	case strings.Contains(displayFormat, "%"):
		if !isFinite(result) {
			return FormatNumber(result*100) + "%"
		}
		return signedFixed(decimal.NewFromFloat(result).Mul(decimal.NewFromInt(100)), 2) + "%"
	case strings.Contains(displayFormat, "$"):
		return "$" + toFixed(result, 2)
	default:
		parts := strings.Split(displayFormat, ".")
		places := 0
		if len(parts) > 1 {
			places = len(parts[1])
		}
		return toFixed(result, places)
	}
}

func toFixed(f float64, places int) string {
	if !isFinite(f) {
		return FormatNumber(f)
	}
	return signedFixed(decimal.NewFromFloat(f), places)
}

// signedFixed keeps the minus sign of a negative value that rounds to zero.
func signedFixed(d decimal.Decimal, places int) string {
	s := d.StringFixed(int32(places))
	if d.IsNegative() && !strings.HasPrefix(s, "-") {
		return "-" + s
	}
	return s
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SelectAndEvaluate picks the formula that applies and evaluates it. The
// first conditional formula whose guard holds wins; otherwise the default
// expressions are used.
func SelectAndEvaluate(formula *CalculationFormula, lookup FieldLookup) Result {
	return formula.Evaluate(lookup)
}

// Evaluate is SelectAndEvaluate on the receiver. A nil formula yields the
// no-formula sentinel.
func (cf *CalculationFormula) Evaluate(lookup FieldLookup) Result {
	result := Result{Value: NoFormulaDefined, MatchedIndex: -1}
	if cf == nil {
		return result
	}
	// guards treat a field without a value as missing
	guarded := unsetAsMissing{lookup}
	for i, conditional := range cf.ConditionalFormulas {
		if !conditional.Condition.Evaluate(guarded, GuardPolicy) {
			continue
		}
		result.Value = EvaluateFormulaFormatted(conditional.Expressions, lookup, cf.DisplayFormat)
		result.MatchedConditional = true
		result.MatchedIndex = i
		return result
	}
	if len(cf.Expressions) > 0 {
		result.Value = EvaluateFormulaFormatted(cf.Expressions, lookup, cf.DisplayFormat)
	}
	return result
}

// unsetAsMissing hides fields that exist but hold no value.
type unsetAsMissing struct {
	FieldLookup
}

func (u unsetAsMissing) Lookup(fieldID string) (Value, bool) {
	v, ok := u.FieldLookup.Lookup(fieldID)
	if !ok || v.IsNone() {
		return Value{}, false
	}
	return v, true
}
