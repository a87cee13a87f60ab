package formlogic

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFormulaSentinels(t *testing.T) {
	values := FieldValues{"a": StringValue("1")}

	assert.Equal(t, NoFormulaDefined, EvaluateFormula(nil, values))
	assert.Equal(t, NoFormulaDefined, EvaluateFormula([]Expression{}, values))

	malformed := [][]Expression{
		{Num("3"), Op("+"), Op(")"), Op("(")},
		{Num("3"), Op("+")},
		{Op("*"), Num("3")},
		{Num("1"), Op("+"), Op("+"), Op("*"), Num("2")},
		{Num("2"), Op("-"), Op("-"), Num("3")},
		{Num("2"), Op("+"), Op("+"), Num("3")},
		{Num("2"), Op("*"), Op("-"), Op("-"), Num("3")},
		{Op("("), Num("1"), Op("+"), Num("2")},
		{Num("1.2.3")},
		{Num("2"), Op("&"), Num("3")},
		{Num("abc")},
		{{Type: "function", Value: "alert(1)"}},
	}
	for _, exprs := range malformed {
		assert.Equal(t, FormulaError, EvaluateFormula(exprs, values), "%v", exprs)
	}
}

func TestEvaluateFormula(t *testing.T) {
	values := FieldValues{
		"a":     StringValue("10"),
		"b":     StringValue("5"),
		"neg":   StringValue("-3"),
		"blank": StringValue(""),
		"none":  NoValue(),
		"flag":  BoolValue(true),
		"n":     NumberValue(2.5),
		"text":  StringValue("twelve"),
	}

	tests := []struct {
		name  string
		exprs []Expression
		want  string
	}{
		{name: "sum", exprs: []Expression{FieldRef("a"), Op("+"), FieldRef("b")}, want: "15"},
		{name: "precedence", exprs: []Expression{FieldRef("a"), Op("+"), FieldRef("b"), Op("*"), Num("2")}, want: "20"},
		{name: "parentheses", exprs: []Expression{Op("("), FieldRef("a"), Op("+"), FieldRef("b"), Op(")"), Op("*"), Num("2")}, want: "30"},
		{name: "division", exprs: []Expression{FieldRef("b"), Op("/"), Num("2")}, want: "2.5"},
		{name: "remainder", exprs: []Expression{FieldRef("a"), Op("%"), Num("4")}, want: "2"},
		{name: "power", exprs: []Expression{FieldRef("b"), Op("^"), Num("2")}, want: "25"},
		{name: "negative value keeps its sign under power", exprs: []Expression{FieldRef("neg"), Op("^"), Num("2")}, want: "9"},
		{name: "negative value after minus", exprs: []Expression{FieldRef("a"), Op("-"), FieldRef("neg")}, want: "13"},
		{name: "missing field reads zero", exprs: []Expression{FieldRef("ghost"), Op("+"), Num("4")}, want: "4"},
		{name: "blank field reads zero", exprs: []Expression{FieldRef("blank"), Op("+"), Num("4")}, want: "4"},
		{name: "unset field reads zero", exprs: []Expression{FieldRef("none"), Op("*"), Num("4")}, want: "0"},
		{name: "bool field", exprs: []Expression{FieldRef("flag"), Op("+"), Num("1")}, want: "2"},
		{name: "number value", exprs: []Expression{FieldRef("n"), Op("*"), Num("2")}, want: "5"},
		{name: "number literal only", exprs: []Expression{Num("0.5")}, want: "0.5"},
		{name: "floating point noise is kept", exprs: []Expression{Num("0.1"), Op("+"), Num("0.2")}, want: "0.30000000000000004"},
		{name: "division by zero", exprs: []Expression{FieldRef("a"), Op("/"), Num("0")}, want: "Infinity"},
		{name: "negative division by zero", exprs: []Expression{FieldRef("neg"), Op("/"), Num("0")}, want: "-Infinity"},
		{name: "zero over zero", exprs: []Expression{Num("0"), Op("/"), Num("0")}, want: "NaN"},
		{name: "text field", exprs: []Expression{FieldRef("text"), Op("+"), Num("1")}, want: FormulaError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateFormula(tt.exprs, values))
		})
	}
}

func TestBuildArithmetic(t *testing.T) {
	values := FieldValues{"a": StringValue("10"), "neg": NumberValue(-2.5)}

	src, err := BuildArithmetic([]Expression{FieldRef("a"), Op("*"), FieldRef("neg"), Op("+"), Num("1"), Op("-"), FieldRef("ghost")}, values)
	require.NoError(t, err)
	assert.Equal(t, "10*(-2.5)+1-0", src)

	_, err = BuildArithmetic([]Expression{Op("=")}, values)
	assert.Error(t, err)

	_, err = BuildArithmetic([]Expression{FieldRef("a"), Op("+"), FieldRef("inf")}, FieldValues{"a": StringValue("1"), "inf": NumberValue(math.Inf(1))})
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name   string
		result float64
		format string
		want   string
	}{
		{name: "percent", result: 0.12345, format: "0.00%", want: "12.35%"},
		{name: "dollars", result: 0.12345, format: "$0.00", want: "$0.12"},
		{name: "one decimal", result: 0.12345, format: "0.0", want: "0.1"},
		{name: "no format", result: 0.12345, format: "", want: "0.12345"},
		{name: "integer format", result: 2.5, format: "0", want: "3"},
		{name: "half away from zero", result: -2.5, format: "0", want: "-3"},
		{name: "shortest form rounds up", result: 1.005, format: "0.00", want: "1.01"},
		{name: "dollars pads decimals", result: 15, format: "$0.00", want: "$15.00"},
		{name: "negative dollars", result: -4.5, format: "$0.00", want: "$-4.50"},
		{name: "percent of whole", result: 1, format: "%", want: "100.00%"},
		{name: "percent wins over dollars", result: 0.5, format: "$%", want: "50.00%"},
		{name: "three decimals", result: 2, format: "#.000", want: "2.000"},
		{name: "first point counts", result: 1.23456, format: "0.00.0", want: "1.23"},
		{name: "no point", result: 12.7, format: "#,###", want: "13"},
		{name: "infinite dollars", result: math.Inf(1), format: "$0.00", want: "$Infinity"},
		{name: "NaN percent", result: math.NaN(), format: "0.00%", want: "NaN%"},
		{name: "infinite fixed", result: math.Inf(-1), format: "0.0", want: "-Infinity"},
		{name: "large raw", result: 1e21, format: "", want: "1e+21"},
		{name: "negative rounds to zero", result: -0.001, format: "0.00", want: "-0.00"},
		{name: "negative dollars round to zero", result: -0.001, format: "$0.00", want: "$-0.00"},
		{name: "negative percent rounds to zero", result: -0.00001, format: "0.00%", want: "-0.00%"},
		{name: "negative rounds to integer zero", result: -0.4, format: "0", want: "-0"},
		{name: "negative zero", result: math.Copysign(0, -1), format: "0.00", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResult(tt.result, tt.format))
		})
	}
}

func TestEvaluateFormulaFormattedSkipsSentinels(t *testing.T) {
	values := FieldValues{}

	assert.Equal(t, NoFormulaDefined, EvaluateFormulaFormatted(nil, values, "$0.00"))
	assert.Equal(t, FormulaError, EvaluateFormulaFormatted([]Expression{Op(")")}, values, "$0.00"))
	assert.Equal(t, "$2.50", EvaluateFormulaFormatted([]Expression{Num("2.5")}, values, "$0.00"))
}

func TestSelectAndEvaluate(t *testing.T) {
	values := FieldValues{
		"a":     StringValue("10"),
		"b":     StringValue("5"),
		"unset": NoValue(),
	}
	sum := []Expression{FieldRef("a"), Op("+"), FieldRef("b")}
	product := []Expression{FieldRef("a"), Op("*"), FieldRef("b")}
	diff := []Expression{FieldRef("a"), Op("-"), FieldRef("b")}

	tests := []struct {
		name    string
		formula *CalculationFormula
		want    Result
	}{
		{
			name:    "nil formula",
			formula: nil,
			want:    Result{Value: NoFormulaDefined, MatchedIndex: -1},
		},
		{
			name:    "empty formula",
			formula: &CalculationFormula{},
			want:    Result{Value: NoFormulaDefined, MatchedIndex: -1},
		},
		{
			name:    "default only",
			formula: &CalculationFormula{Expressions: sum},
			want:    Result{Value: "15", MatchedIndex: -1},
		},
		{
			name: "first match wins",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorGreaterThan, Value: "5"}, Expressions: product},
					{Condition: SingleCondition{SourceFieldID: "b", Operator: OperatorEquals, Value: "5"}, Expressions: diff},
				},
			},
			want: Result{Value: "50", MatchedConditional: true, MatchedIndex: 0},
		},
		{
			name: "later guard matches",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorLessThan, Value: "5"}, Expressions: product},
					{Condition: SingleCondition{SourceFieldID: "b", Operator: OperatorEquals, Value: "5"}, Expressions: diff},
				},
			},
			want: Result{Value: "5", MatchedConditional: true, MatchedIndex: 1},
		},
		{
			name: "no guard matches falls back to default",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorLessThan, Value: "5"}, Expressions: product},
				},
			},
			want: Result{Value: "15", MatchedIndex: -1},
		},
		{
			name: "no guard matches and no default",
			formula: &CalculationFormula{
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorLessThan, Value: "5"}, Expressions: product},
				},
			},
			want: Result{Value: NoFormulaDefined, MatchedIndex: -1},
		},
		{
			name: "guard on missing field does not match",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "deleted", Operator: OperatorIsEmpty}, Expressions: product},
				},
			},
			want: Result{Value: "15", MatchedIndex: -1},
		},
		{
			name: "guard on unset field does not match",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "unset", Operator: OperatorIsEmpty}, Expressions: product},
				},
			},
			want: Result{Value: "15", MatchedIndex: -1},
		},
		{
			name: "guard with unknown operator does not match",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: "matches", Value: "10"}, Expressions: product},
				},
			},
			want: Result{Value: "15", MatchedIndex: -1},
		},
		{
			name: "matched branch with empty expressions",
			formula: &CalculationFormula{
				Expressions: sum,
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorEquals, Value: "10"}},
				},
			},
			want: Result{Value: NoFormulaDefined, MatchedConditional: true, MatchedIndex: 0},
		},
		{
			name: "display format applies to the winning branch",
			formula: &CalculationFormula{
				Expressions:   sum,
				DisplayFormat: "$0.00",
				ConditionalFormulas: []ConditionalFormula{
					{Condition: SingleCondition{SourceFieldID: "a", Operator: OperatorEquals, Value: "10"}, Expressions: product},
				},
			},
			want: Result{Value: "$50.00", MatchedConditional: true, MatchedIndex: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectAndEvaluate(tt.formula, values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SelectAndEvaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResultIsSentinel(t *testing.T) {
	assert.True(t, Result{Value: NoFormulaDefined}.IsSentinel())
	assert.True(t, Result{Value: FormulaError}.IsSentinel())
	assert.False(t, Result{Value: "0"}.IsSentinel())
}

func TestCalculationFormulaJSONRoundTrip(t *testing.T) {
	formula := &CalculationFormula{
		Expressions: []Expression{FieldRef("a"), Op("+"), FieldRef("b"), Op("*"), Num("1.5")},
		ConditionalFormulas: []ConditionalFormula{
			{
				Condition:   SingleCondition{SourceFieldID: "a", Operator: OperatorGreaterThan, Value: "5"},
				Expressions: []Expression{FieldRef("a"), Op("*"), FieldRef("b")},
			},
			{
				Condition:   SingleCondition{SourceFieldID: "b", Operator: OperatorIsEmpty},
				Expressions: []Expression{Num("0")},
			},
		},
		DisplayFormat: "0.00",
	}

	data, err := json.Marshal(formula)
	require.NoError(t, err)

	var decoded CalculationFormula
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(formula, &decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	for _, values := range []FieldValues{
		{"a": StringValue("10"), "b": StringValue("5")},
		{"a": StringValue("2"), "b": StringValue("5")},
		{"a": StringValue("2"), "b": StringValue("")},
		{},
	} {
		assert.Equal(t, formula.Evaluate(values), decoded.Evaluate(values))
	}
}

func TestCalculationFormulaJSONShape(t *testing.T) {
	data := []byte(`{
		"expressions": [
			{"type": "field", "value": "price"},
			{"type": "operator", "value": "*"},
			{"type": "number", "value": "0.2"}
		],
		"conditionalFormulas": [
			{
				"condition": {"sourceFieldId": "exempt", "operator": "equals", "value": "yes"},
				"expressions": [{"type": "number", "value": "0"}]
			}
		],
		"displayFormat": "$0.00"
	}`)

	var formula CalculationFormula
	require.NoError(t, json.Unmarshal(data, &formula))

	assert.Equal(t, "$20.00", formula.Evaluate(FieldValues{"price": StringValue("100")}).Value)
	assert.Equal(t, Result{Value: "$0.00", MatchedConditional: true, MatchedIndex: 0},
		formula.Evaluate(FieldValues{"price": StringValue("100"), "exempt": StringValue("yes")}))
}

func TestEndToEndCalculatedField(t *testing.T) {
	sections := []Section{{
		ID: "s1",
		Fields: []Field{
			{ID: "A", Type: FieldTypeNumber, Value: StringValue("10")},
			{ID: "B", Type: FieldTypeNumber, Value: StringValue("5")},
			{ID: "C", Type: FieldTypeCalculated, Formula: &CalculationFormula{
				Expressions: []Expression{FieldRef("A"), Op("+"), FieldRef("B")},
			}},
		},
	}}

	got, err := NewFormEvaluator(sections).CalculatedValue("C")
	require.NoError(t, err)
	assert.Equal(t, Result{Value: "15", MatchedIndex: -1}, got)

	sections[0].Fields[2].Formula.ConditionalFormulas = []ConditionalFormula{{
		Condition:   SingleCondition{SourceFieldID: "A", Operator: OperatorGreaterThan, Value: "5"},
		Expressions: []Expression{FieldRef("A"), Op("*"), FieldRef("B")},
	}}

	got, err = NewFormEvaluator(sections).CalculatedValue("C")
	require.NoError(t, err)
	assert.Equal(t, "50", got.Value)
	assert.True(t, got.MatchedConditional)
}
