/*
Package learning records routed turns in the operation log and ranks tools
by how they have been used.

Tracking runs in the background so a slow or missing database never delays
a turn. Ranking combines frequency, recency and success rate.
*/
package learning

import (
	"time"

	"github.com/khanglvm/tool-router/internal/storage"
)

// OperationEvent is one routed turn as seen by the tracker.
type OperationEvent struct {
	SessionID  string
	Timestamp  time.Time
	OpType     string
	Tool       string
	Intent     string
	Tier       string
	Path       string
	Confidence float64
	Success    bool

	// ContextHash is a digest of the request; the raw text is never stored.
	ContextHash string
}

// NewOperationEvent builds an event for a turn that just finished, hashing
// the request text.
func NewOperationEvent(sessionID, opType, tool, intent, tier, path string, confidence float64, success bool, text string) OperationEvent {
	return OperationEvent{
		SessionID:   sessionID,
		Timestamp:   time.Now(),
		OpType:      opType,
		Tool:        tool,
		Intent:      intent,
		Tier:        tier,
		Path:        path,
		Confidence:  confidence,
		Success:     success,
		ContextHash: storage.HashContext(text),
	}
}

// ToStorage converts the event to its storage model.
func (e OperationEvent) ToStorage() storage.OperationRecord {
	return storage.OperationRecord{
		SessionID:   e.SessionID,
		Timestamp:   e.Timestamp,
		OpType:      e.OpType,
		Tool:        e.Tool,
		Intent:      e.Intent,
		Tier:        e.Tier,
		Path:        e.Path,
		Confidence:  e.Confidence,
		Success:     e.Success,
		ContextHash: e.ContextHash,
	}
}
