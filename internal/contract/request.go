package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/conative/internal/model"
	"github.com/ppiankov/conative/internal/policy"
)

// ErrInvalidRequest marks a malformed request. It rejects that request
// only and never aborts a batch.
var ErrInvalidRequest = errors.New("invalid request")

// DefaultSource is used when a request does not name its origin.
const DefaultSource = "cli"

// RepositoryContext describes the repository a proposal targets.
type RepositoryContext struct {
	Name          string `json:"name" yaml:"name"`
	DefaultBranch string `json:"default_branch,omitempty" yaml:"default_branch,omitempty"`
	PolicyFile    string `json:"policy_file,omitempty" yaml:"policy_file,omitempty"`
	IsNew         bool   `json:"is_new" yaml:"is_new"`
}

// RequestContext is metadata around a proposal.
type RequestContext struct {
	Source         string             `json:"source" yaml:"source"`
	SessionID      string             `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	AgentID        string             `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Repository     *RepositoryContext `json:"repository,omitempty" yaml:"repository,omitempty"`
	SessionHistory []string           `json:"session_history" yaml:"session_history"`
	Metadata       map[string]string  `json:"metadata" yaml:"metadata"`
}

// GatingRequest is the input to the decision pipeline.
type GatingRequest struct {
	RequestID      string          `json:"request_id" yaml:"request_id"`
	Timestamp      time.Time       `json:"timestamp" yaml:"timestamp"`
	Proposal       *model.Proposal `json:"proposal" yaml:"proposal"`
	Context        RequestContext  `json:"context" yaml:"context"`
	PolicyOverride *policy.Policy  `json:"policy_override,omitempty" yaml:"policy_override,omitempty"`
}

// RequestConfig holds optional request fields. Zero values get defaults.
type RequestConfig struct {
	RequestID      string
	Timestamp      time.Time
	Source         string
	SessionID      string
	AgentID        string
	Repository     *RepositoryContext
	SessionHistory []string
	Metadata       map[string]string
	PolicyOverride *policy.Policy
}

// NewRequest wraps a proposal in a request. Missing ids and timestamps
// are generated, and the source defaults to DefaultSource.
func NewRequest(p *model.Proposal, cfg RequestConfig) *GatingRequest {
	if cfg.RequestID == "" {
		cfg.RequestID = uuid.New().String()
	}
	if cfg.Timestamp.IsZero() {
		cfg.Timestamp = time.Now().UTC()
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.SessionHistory == nil {
		cfg.SessionHistory = []string{}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = map[string]string{}
	}
	return &GatingRequest{
		RequestID: cfg.RequestID,
		Timestamp: cfg.Timestamp,
		Proposal:  p,
		Context: RequestContext{
			Source:         cfg.Source,
			SessionID:      cfg.SessionID,
			AgentID:        cfg.AgentID,
			Repository:     cfg.Repository,
			SessionHistory: cfg.SessionHistory,
			Metadata:       cfg.Metadata,
		},
		PolicyOverride: cfg.PolicyOverride,
	}
}

// Validate checks the request payload.
func (r *GatingRequest) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("%w: missing request_id", ErrInvalidRequest)
	}
	if _, err := uuid.Parse(r.RequestID); err != nil {
		return fmt.Errorf("%w: request_id %q is not a UUID", ErrInvalidRequest, r.RequestID)
	}
	if err := r.Proposal.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Context.Repository != nil && r.Context.Repository.Name == "" {
		return fmt.Errorf("%w: repository context needs a name", ErrInvalidRequest)
	}
	return nil
}

// ParseRequest decodes a JSON request, fills defaults for omitted ids,
// and validates it.
func ParseRequest(data []byte) (*GatingRequest, error) {
	var r GatingRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Proposal == nil {
		return nil, fmt.Errorf("%w: missing proposal", ErrInvalidRequest)
	}
	filled := NewRequest(r.Proposal, RequestConfig{
		RequestID:      r.RequestID,
		Timestamp:      r.Timestamp,
		Source:         r.Context.Source,
		SessionID:      r.Context.SessionID,
		AgentID:        r.Context.AgentID,
		Repository:     r.Context.Repository,
		SessionHistory: r.Context.SessionHistory,
		Metadata:       r.Context.Metadata,
		PolicyOverride: r.PolicyOverride,
	})
	if filled.Proposal.ID == "" {
		filled.Proposal.ID = uuid.New().String()
	}
	if err := filled.Validate(); err != nil {
		return nil, err
	}
	return filled, nil
}
