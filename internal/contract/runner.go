package contract

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/conative/internal/model"
	"github.com/ppiankov/conative/internal/oracle"
	"github.com/ppiankov/conative/internal/policy"
	"github.com/ppiankov/conative/internal/slm"
)

// Stage names recorded in ProcessingMetadata.StagesExecuted.
const (
	StageOracle = "oracle"
	StageSLM    = "slm"
)

// Observer is notified of every decision the runner produces.
type Observer interface {
	ObserveDecision(d *Decision)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	EnableSLM bool
	Observer  Observer
	Logger    *slog.Logger
}

// Runner derives decisions from requests. It holds no per-request state
// and is safe for concurrent use.
type Runner struct {
	oracle   *oracle.Oracle
	slm      *slm.Evaluator
	observer Observer
	log      *slog.Logger
}

// NewRunner compiles the policy. A malformed policy is rejected here,
// before any request is evaluated.
func NewRunner(p *policy.Policy, cfg RunnerConfig) (*Runner, error) {
	o, err := oracle.New(p)
	if err != nil {
		return nil, err
	}
	r := &Runner{oracle: o, observer: cfg.Observer, log: cfg.Logger}
	if cfg.EnableSLM {
		r.slm = slm.New()
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r, nil
}

// Oracle returns the compiled oracle for the runner's policy.
func (r *Runner) Oracle() *oracle.Oracle {
	return r.oracle
}

// Check wraps a bare proposal in a default request and evaluates it.
func (r *Runner) Check(p *model.Proposal) (*Decision, error) {
	return r.Evaluate(NewRequest(p, RequestConfig{}))
}

// Evaluate runs the oracle once and derives the decision. A request
// carrying a policy override is checked against that policy instead.
func (r *Runner) Evaluate(req *GatingRequest) (*Decision, error) {
	start := time.Now()

	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o := r.oracle
	if req.PolicyOverride != nil {
		var err error
		o, err = oracle.New(req.PolicyOverride)
		if err != nil {
			return nil, fmt.Errorf("policy override: %w", err)
		}
	}

	eval := o.Evaluate(req.Proposal)
	stages := []string{StageOracle}
	chain := EvaluationChain{Oracle: &eval}

	if r.slm != nil {
		s := r.slm.Evaluate(req.Proposal.Content, req.Proposal.ActionType.String())
		chain.SLM = &s
		stages = append(stages, StageSLM)
	}

	verdict, refusal := Derive(&eval)

	d := &Decision{
		RequestID:   req.RequestID,
		DecisionID:  uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Verdict:     verdict,
		Refusal:     refusal,
		Evaluations: chain,
		Processing: ProcessingMetadata{
			DurationUS:      time.Since(start).Microseconds(),
			ContractVersion: Version,
			PolicyName:      o.Policy().Name,
			RulesChecked:    len(eval.RulesChecked),
			StagesExecuted:  stages,
		},
	}

	r.log.Debug("decision",
		"request_id", d.RequestID,
		"verdict", d.Verdict,
		"oracle", oracle.VerdictName(eval.Verdict),
		"duration_us", d.Processing.DurationUS)

	if r.observer != nil {
		r.observer.ObserveDecision(d)
	}
	return d, nil
}
