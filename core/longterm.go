package core

import "time"

// RunRecord is the unit persisted to long-term memory at run end.
type RunRecord struct {
	RunID       string           `json:"run_id"`
	Goal        string           `json:"goal"`
	Plan        *Plan            `json:"plan,omitempty"`
	Evaluation  *FinalEvaluation `json:"evaluation,omitempty"`
	Transcript  []AgentMessage   `json:"transcript,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// LongTermMemory persists run records across runs. It is append-only and safe
// for concurrent writers; retrieval is at minimum recency-ordered.
type LongTermMemory interface {
	// RecordRun appends a completed run keyed by its run id.
	RecordRun(rec RunRecord) error
	// Recent returns up to n records, most recent first.
	Recent(n int) ([]RunRecord, error)
	// Get returns the record for a run id, or nil if unknown.
	Get(runID string) (*RunRecord, error)
}
