package policy

// BaselineName is the name of the built-in policy.
const BaselineName = "RSR Default Policy"

// BaselinePolicy returns a fresh copy of the built-in policy.
func BaselinePolicy() *Policy {
	return &Policy{
		Name: BaselineName,
		Languages: LanguagePolicy{
			Tier1: []LanguageRule{
				{Name: "rust", Extensions: []string{".rs"}, Markers: []string{"fn main", "impl ", "pub fn"}},
				{Name: "elixir", Extensions: []string{".ex", ".exs"}, Markers: []string{"defmodule", "def "}},
				{Name: "zig", Extensions: []string{".zig"}, Markers: []string{"const std"}},
				{Name: "ada", Extensions: []string{".adb", ".ads"}, Markers: []string{"procedure", "package"}},
				{Name: "haskell", Extensions: []string{".hs"}, Markers: []string{"module "}},
				{Name: "rescript", Extensions: []string{".res", ".resi"}, Markers: []string{"@react.component"}},
			},
			Tier2: []LanguageRule{
				{Name: "nickel", Extensions: []string{".ncl"}},
				{Name: "racket", Extensions: []string{".rkt"}, Markers: []string{"#lang"}},
			},
			Forbidden: []LanguageRule{
				{Name: "typescript", Extensions: []string{".ts", ".tsx"}, Markers: []string{": string", ": number", "interface "}},
				{Name: "python", Extensions: []string{".py"}, Markers: []string{"import ", "def "}},
				{Name: "go", Extensions: []string{".go"}, Markers: []string{"package main", "func "}},
				{Name: "java", Extensions: []string{".java"}, Markers: []string{"public class"}},
			},
			Exceptions: []ExceptionRule{
				{
					Language:     "python",
					AllowedPaths: []string{"salt/", "training/"},
					Reason:       "Python allowed for Salt configs and ML training",
				},
			},
		},
		Toolchain: ToolchainPolicy{
			Rules: []ToolchainRule{
				{
					Tool:            "npm",
					ToolMarkers:     []string{"package.json", "npm install"},
					Requires:        "deno",
					RequiresMarkers: []string{"deno.json"},
				},
			},
		},
		Patterns: PatternPolicy{
			Forbidden: []PatternRule{
				{
					Name:      "hardcoded_secrets",
					Regex:     `(?i)(password|secret|api_key)\s*=\s*["'][^"']{8,}["']`,
					FileTypes: []string{"*"},
					Reason:    "Hardcoded secrets detected",
					Category:  CategorySecurity,
				},
			},
		},
		Enforcement: Enforcement{
			SLMWeight:         1.5,
			EscalateThreshold: 0.4,
			BlockThreshold:    0.7,
		},
	}
}

// DefaultPolicyYAML returns the baseline policy as a commented YAML file.
func DefaultPolicyYAML() string {
	return `# conative gating policy
# Generated by: conative init
#
# Evaluation order (cannot be changed):
#   1. Forbidden language markers in content -> block
#   2. Forbidden language file extensions -> block
#   3. Toolchain co-requirements -> block
#   4. Forbidden patterns -> block
#   5. Tier 2 languages -> warn
# The first hit in this order becomes the reported verdict.

name: "RSR Default Policy"

languages:
  # Preferred languages. Never produce findings.
  tier1:
    - name: rust
      extensions: [".rs"]
      markers: ["fn main", "impl ", "pub fn"]
    - name: elixir
      extensions: [".ex", ".exs"]
      markers: ["defmodule", "def "]
    - name: zig
      extensions: [".zig"]
      markers: ["const std"]
    - name: ada
      extensions: [".adb", ".ads"]
      markers: ["procedure", "package"]
    - name: haskell
      extensions: [".hs"]
      markers: ["module "]
    - name: rescript
      extensions: [".res", ".resi"]
      markers: ["@react.component"]

  # Tolerated languages. A match produces a concern (warn).
  tier2:
    - name: nickel
      extensions: [".ncl"]
    - name: racket
      extensions: [".rkt"]
      markers: ["#lang"]

  # Forbidden languages. Markers are case-insensitive substrings,
  # extensions are case-insensitive suffixes.
  forbidden:
    - name: typescript
      extensions: [".ts", ".tsx"]
      markers: [": string", ": number", "interface "]
    - name: python
      extensions: [".py"]
      markers: ["import ", "def "]
    - name: go
      extensions: [".go"]
      markers: ["package main", "func "]
    - name: java
      extensions: [".java"]
      markers: ["public class"]

  # A forbidden language is allowed when an affected path contains
  # one of allowed_paths.
  exceptions:
    - language: python
      allowed_paths: ["salt/", "training/"]
      reason: "Python allowed for Salt configs and ML training"

# Using tool without requires is a violation. Markers are matched
# against content and affected file names.
toolchain:
  rules:
    - tool: npm
      tool_markers: ["package.json", "npm install"]
      requires: deno
      requires_markers: ["deno.json"]

# Regex rules applied to proposal content.
#   file_types: "*" for all files, or extensions such as ".rs"
#   category: security | pattern
patterns:
  forbidden:
    - name: hardcoded_secrets
      regex: '(?i)(password|secret|api_key)\s*=\s*["''][^"'']{8,}["'']'
      file_types: ["*"]
      reason: "Hardcoded secrets detected"
      category: security

# Reserved for the neural evaluation stage.
enforcement:
  slm_weight: 1.5
  escalate_threshold: 0.4
  block_threshold: 0.7
`
}
