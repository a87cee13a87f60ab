// Package telemetry is a lightweight hook layer for evaluation outcomes.
// By default the emitter is a no-op; service wiring or tests may register a
// real one with RegisterEmitter.
package telemetry

import "sync"

// Emitter receives a named event with labels and a value.
type Emitter func(name string, labels map[string]string, value any)

var (
	mu   sync.Mutex
	impl Emitter = func(name string, labels map[string]string, value any) {}
)

// RegisterEmitter installs fn. A nil fn restores the no-op emitter.
func RegisterEmitter(fn Emitter) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		impl = func(name string, labels map[string]string, value any) {}
		return
	}
	impl = fn
}

func emit(name string, labels map[string]string, value any) {
	mu.Lock()
	fn := impl
	mu.Unlock()
	fn(name, labels, value)
}

// EmitFormulaOutcome counts one formula evaluation.
// name: "formula_outcome" with label {"outcome": "ok|no_formula|error|cycle"}
func EmitFormulaOutcome(outcome string) {
	emit("formula_outcome", map[string]string{"outcome": outcome}, 1)
}

// EmitConditionalMatch records which conditional formula won, -1 for the
// default formula.
// name: "conditional_formula_match" with label {"field": "<id>"}
func EmitConditionalMatch(fieldID string, index int) {
	emit("conditional_formula_match", map[string]string{"field": fieldID}, index)
}

// EmitCycle records a calculated-field reference cycle.
// name: "formula_cycle" with label {"field": "<id>"}
func EmitCycle(fieldID string, length int) {
	emit("formula_cycle", map[string]string{"field": fieldID}, length)
}
