package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ActionKind names what a proposal wants to do.
type ActionKind string

const (
	CreateFile     ActionKind = "CreateFile"
	ModifyFile     ActionKind = "ModifyFile"
	DeleteFile     ActionKind = "DeleteFile"
	ExecuteCommand ActionKind = "ExecuteCommand"
)

// ErrInvalidProposal is returned by Validate.
var ErrInvalidProposal = errors.New("invalid proposal")

// ActionType is the action a proposal performs. File actions carry Path,
// ExecuteCommand carries Command.
//
// On the wire it is externally tagged: {"CreateFile": {"path": "src/main.rs"}}.
type ActionType struct {
	Kind    ActionKind
	Path    string
	Command string
}

type actionBody struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Target returns the path or command the action refers to.
func (a ActionType) Target() string {
	if a.Kind == ExecuteCommand {
		return a.Command
	}
	return a.Path
}

func (a ActionType) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.Target())
}

// Validate checks that the kind is known and its field is set.
func (a ActionType) Validate() error {
	switch a.Kind {
	case CreateFile, ModifyFile, DeleteFile:
		if a.Path == "" {
			return fmt.Errorf("%w: %s requires a path", ErrInvalidProposal, a.Kind)
		}
	case ExecuteCommand:
		if a.Command == "" {
			return fmt.Errorf("%w: %s requires a command", ErrInvalidProposal, a.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidProposal, a.Kind)
	}
	return nil
}

func (a ActionType) body() actionBody {
	if a.Kind == ExecuteCommand {
		return actionBody{Command: a.Command}
	}
	return actionBody{Path: a.Path}
}

func (a *ActionType) setFrom(kind string, b actionBody) {
	a.Kind = ActionKind(kind)
	a.Path = b.Path
	a.Command = b.Command
}

// MarshalJSON implements json.Marshaler.
func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]actionBody{string(a.Kind): a.body()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *ActionType) UnmarshalJSON(data []byte) error {
	var m map[string]actionBody
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("action_type: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: action_type must have exactly one variant, got %d", ErrInvalidProposal, len(m))
	}
	for k, b := range m {
		a.setFrom(k, b)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a ActionType) MarshalYAML() (any, error) {
	return map[string]actionBody{string(a.Kind): a.body()}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *ActionType) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]actionBody
	if err := node.Decode(&m); err != nil {
		return fmt.Errorf("action_type: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: action_type must have exactly one variant, got %d", ErrInvalidProposal, len(m))
	}
	for k, b := range m {
		a.setFrom(k, b)
	}
	return nil
}

// Proposal is a candidate change submitted for evaluation. Evaluation
// never mutates it.
type Proposal struct {
	ID            string     `json:"id" yaml:"id"`
	ActionType    ActionType `json:"action_type" yaml:"action_type"`
	Content       string     `json:"content" yaml:"content"`
	FilesAffected []string   `json:"files_affected" yaml:"files_affected"`
	LLMConfidence float64    `json:"llm_confidence" yaml:"llm_confidence"`
}

// NewProposal builds a proposal with a fresh id.
func NewProposal(action ActionType, content string, files ...string) *Proposal {
	return &Proposal{
		ID:            uuid.New().String(),
		ActionType:    action,
		Content:       content,
		FilesAffected: files,
		LLMConfidence: 1.0,
	}
}

// Validate checks a proposal payload.
func (p *Proposal) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: missing proposal", ErrInvalidProposal)
	}
	if p.ID != "" {
		if _, err := uuid.Parse(p.ID); err != nil {
			return fmt.Errorf("%w: id %q is not a UUID", ErrInvalidProposal, p.ID)
		}
	}
	if p.LLMConfidence < 0 || p.LLMConfidence > 1 {
		return fmt.Errorf("%w: llm_confidence %v outside [0,1]", ErrInvalidProposal, p.LLMConfidence)
	}
	return p.ActionType.Validate()
}
