package memory

import (
	"fmt"
	"sync"

	"github.com/planloop/planloop/core"
)

// InMemoryLongTerm is an append-only archive of completed runs. Records are
// stored and returned by value with deep-copied plans, so callers cannot
// mutate archived history.
type InMemoryLongTerm struct {
	mu      sync.RWMutex
	records []core.RunRecord
	byID    map[string]int
}

// NewInMemoryLongTerm creates an empty archive.
func NewInMemoryLongTerm() *InMemoryLongTerm {
	return &InMemoryLongTerm{byID: map[string]int{}}
}

// RecordRun implements core.LongTermMemory.
func (m *InMemoryLongTerm) RecordRun(record core.RunRecord) error {
	if record.RunID == "" {
		return fmt.Errorf("run record must have a run id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[record.RunID]; exists {
		return fmt.Errorf("run %s already recorded", record.RunID)
	}
	m.byID[record.RunID] = len(m.records)
	m.records = append(m.records, cloneRecord(record))
	return nil
}

// Recent implements core.LongTermMemory, returning up to n records newest
// first.
func (m *InMemoryLongTerm) Recent(n int) ([]core.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > len(m.records) {
		n = len(m.records)
	}
	out := make([]core.RunRecord, 0, n)
	for i := len(m.records) - 1; i >= len(m.records)-n; i-- {
		out = append(out, cloneRecord(m.records[i]))
	}
	return out, nil
}

// Get implements core.LongTermMemory.
func (m *InMemoryLongTerm) Get(runID string) (*core.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	record := cloneRecord(m.records[idx])
	return &record, nil
}

// Len returns the number of archived runs.
func (m *InMemoryLongTerm) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cloneRecord(record core.RunRecord) core.RunRecord {
	out := record
	if record.Plan != nil {
		out.Plan = record.Plan.Clone()
	}
	if record.Evaluation != nil {
		eval := *record.Evaluation
		eval.Steps = append([]core.StepEvaluation(nil), record.Evaluation.Steps...)
		out.Evaluation = &eval
	}
	out.Transcript = append([]core.AgentMessage(nil), record.Transcript...)
	return out
}

var _ core.LongTermMemory = (*InMemoryLongTerm)(nil)
