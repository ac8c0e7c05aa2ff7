/*
Package storage provides data models for the operation log.

Each turn the router handles becomes one OperationRecord. Queries are
hashed before storage, so the log never holds the user's raw text.
*/
package storage

import "time"

// OperationRecord is one routed turn.
type OperationRecord struct {
	// SessionID groups records produced by one session.
	SessionID string `json:"session_id"`

	// Timestamp is when the turn completed.
	Timestamp time.Time `json:"timestamp"`

	// OpType is the session operation type, e.g. file_creation.
	OpType string `json:"op_type"`

	// Tool is the executed or recommended tool; empty for model-only answers.
	Tool string `json:"tool"`

	// Intent and Tier record the decision that produced the turn.
	Intent string `json:"intent"`
	Tier   string `json:"tier"`

	// Path is the execution path taken: direct, model or fallback.
	Path string `json:"path"`

	// Confidence is the enhanced decision confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Success reports whether the turn produced a result.
	Success bool `json:"success"`

	// ContextHash is a blake3 digest of the request text.
	ContextHash string `json:"context_hash"`
}

// ToolStats aggregates records for one tool.
type ToolStats struct {
	Tool      string    `json:"tool"`
	Count     int       `json:"count"`
	Successes int       `json:"successes"`
	LastUsed  time.Time `json:"last_used"`
}

// SuccessRate returns Successes/Count, or 0 without records.
func (s ToolStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count)
}
