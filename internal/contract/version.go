// Package contract maps oracle evaluations onto the external gating
// decision schema: verdicts, the refusal taxonomy, and processing metadata.
package contract

const (
	// Version is bumped on any change to the decision schema.
	Version = "0.1.0"
	// Schema identifies decision and audit documents.
	Schema = "conative-gating-contract-v1"
)

// ExitSystemError is the process exit code for I/O, parse and other
// faults. It never collides with a verdict exit code.
const ExitSystemError = 4
