package contract

import (
	"time"

	"github.com/ppiankov/conative/internal/oracle"
	"github.com/ppiankov/conative/internal/slm"
)

// ArbiterResult is the reserved slot for multi-evaluator consensus.
type ArbiterResult struct {
	ConsensusReached bool    `json:"consensus_reached"`
	OracleVote       Verdict `json:"oracle_vote"`
	SLMVote          Verdict `json:"slm_vote"`
	FinalVerdict     Verdict `json:"final_verdict"`
	SLMWeight        float64 `json:"slm_weight"`
}

// EvaluationChain holds per-stage results. Unset stages are omitted and
// do not influence the verdict.
type EvaluationChain struct {
	Oracle  *oracle.Evaluation `json:"oracle,omitempty"`
	SLM     *slm.Evaluation    `json:"slm,omitempty"`
	Arbiter *ArbiterResult     `json:"arbiter,omitempty"`
}

// ProcessingMetadata describes how a decision was produced.
type ProcessingMetadata struct {
	DurationUS      int64    `json:"duration_us"`
	ContractVersion string   `json:"contract_version"`
	PolicyName      string   `json:"policy_name"`
	RulesChecked    int      `json:"rules_checked"`
	StagesExecuted  []string `json:"stages_executed"`
}

// Decision is the typed output of the gating pipeline. A Refusal is
// present iff Verdict is not Allow.
type Decision struct {
	RequestID   string             `json:"request_id"`
	DecisionID  string             `json:"decision_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Verdict     Verdict            `json:"verdict"`
	Refusal     *Refusal           `json:"refusal,omitempty"`
	Evaluations EvaluationChain    `json:"evaluations"`
	Processing  ProcessingMetadata `json:"processing"`
}
