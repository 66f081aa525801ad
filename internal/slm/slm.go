// Package slm is the neural evaluation stage. No model is wired yet, so
// every evaluation returns a fixed result that never blocks.
package slm

// NotImplemented is the reasoning reported by the stub.
const NotImplemented = "SLM evaluation not yet implemented"

// Evaluation is the result of a spirit check.
type Evaluation struct {
	SpiritScore float64 `json:"spirit_score"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	ShouldBlock bool    `json:"should_block"`
}

// Evaluator checks content for spirit violations.
type Evaluator struct{}

// New returns a stub evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns the fixed "not implemented" result.
func (e *Evaluator) Evaluate(content, context string) Evaluation {
	return Evaluation{Reasoning: NotImplemented}
}
