package model

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestActionTypeJSONWireForm(t *testing.T) {
	a := ActionType{Kind: CreateFile, Path: "src/main.rs"}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"CreateFile":{"path":"src/main.rs"}}` {
		t.Errorf("unexpected wire form: %s", data)
	}

	var cmd ActionType
	if err := json.Unmarshal([]byte(`{"ExecuteCommand":{"command":"npm install"}}`), &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != ExecuteCommand || cmd.Command != "npm install" {
		t.Errorf("unexpected action: %+v", cmd)
	}
	if cmd.Target() != "npm install" {
		t.Errorf("expected target to be the command, got %q", cmd.Target())
	}
}

func TestActionTypeRejectsMultipleVariants(t *testing.T) {
	var a ActionType
	err := json.Unmarshal([]byte(`{"CreateFile":{"path":"a"},"DeleteFile":{"path":"b"}}`), &a)
	if !errors.Is(err, ErrInvalidProposal) {
		t.Errorf("expected ErrInvalidProposal, got %v", err)
	}
}

func TestActionTypeYAML(t *testing.T) {
	var p Proposal
	src := `
id: 6f1c1f1e-8d5a-4a39-9a57-0e3f0c0ac9a1
action_type:
  ModifyFile:
    path: lib/x.ex
content: "defmodule X do end"
files_affected: [lib/x.ex]
llm_confidence: 0.8
`
	if err := yaml.Unmarshal([]byte(src), &p); err != nil {
		t.Fatal(err)
	}
	if p.ActionType.Kind != ModifyFile || p.ActionType.Path != "lib/x.ex" {
		t.Errorf("unexpected action: %+v", p.ActionType)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("expected valid proposal, got %v", err)
	}
}

func TestProposalValidate(t *testing.T) {
	tests := []struct {
		name string
		p    *Proposal
		ok   bool
	}{
		{"valid", NewProposal(ActionType{Kind: CreateFile, Path: "a.rs"}, "x"), true},
		{"nil", nil, false},
		{"unknown kind", &Proposal{ActionType: ActionType{Kind: "RenameFile", Path: "a"}}, false},
		{"missing path", &Proposal{ActionType: ActionType{Kind: DeleteFile}}, false},
		{"missing command", &Proposal{ActionType: ActionType{Kind: ExecuteCommand}}, false},
		{"bad id", &Proposal{ID: "nope", ActionType: ActionType{Kind: CreateFile, Path: "a"}}, false},
		{"confidence too high", &Proposal{ActionType: ActionType{Kind: CreateFile, Path: "a"}, LLMConfidence: 1.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidProposal) {
				t.Errorf("expected ErrInvalidProposal, got %v", err)
			}
		})
	}
}

func TestNewProposalDefaults(t *testing.T) {
	p := NewProposal(ActionType{Kind: CreateFile, Path: "a.rs"}, "fn main() {}", "a.rs")
	if p.ID == "" {
		t.Error("expected generated id")
	}
	if p.LLMConfidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", p.LLMConfidence)
	}
	if len(p.FilesAffected) != 1 {
		t.Errorf("expected 1 file, got %d", len(p.FilesAffected))
	}
}
