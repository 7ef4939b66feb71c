package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
)

func sampleRecord(id string) core.RunRecord {
	return core.RunRecord{
		RunID: id,
		Goal:  "test goal",
		Plan: &core.Plan{
			Goal: "test goal",
			SubTasks: []*core.SubTask{
				{ID: 1, Description: "do the thing", Status: core.StatusCompleted},
			},
			CreatedAt: time.Now().UTC(),
		},
		Evaluation: &core.FinalEvaluation{
			Goal:         "test goal",
			OverallScore: 0.9,
			Steps:        []core.StepEvaluation{{StepID: 1, Success: true, Score: 0.9}},
		},
		CompletedAt: time.Now().UTC(),
	}
}

func TestInMemoryLongTermRecordRun(t *testing.T) {
	t.Run("stores and retrieves by id", func(t *testing.T) {
		archive := NewInMemoryLongTerm()
		require.NoError(t, archive.RecordRun(sampleRecord("run-1")))

		got, err := archive.Get("run-1")
		require.NoError(t, err)
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, "test goal", got.Goal)
	})

	t.Run("rejects empty run id", func(t *testing.T) {
		archive := NewInMemoryLongTerm()
		assert.Error(t, archive.RecordRun(core.RunRecord{}))
	})

	t.Run("rejects duplicate run id", func(t *testing.T) {
		archive := NewInMemoryLongTerm()
		require.NoError(t, archive.RecordRun(sampleRecord("run-1")))
		assert.Error(t, archive.RecordRun(sampleRecord("run-1")))
	})
}

func TestInMemoryLongTermRecent(t *testing.T) {
	archive := NewInMemoryLongTerm()
	for i := 1; i <= 5; i++ {
		require.NoError(t, archive.RecordRun(sampleRecord(fmt.Sprintf("run-%d", i))))
	}

	t.Run("returns newest first", func(t *testing.T) {
		recent, err := archive.Recent(2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "run-5", recent[0].RunID)
		assert.Equal(t, "run-4", recent[1].RunID)
	})

	t.Run("zero or oversized n returns everything", func(t *testing.T) {
		all, err := archive.Recent(0)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		all, err = archive.Recent(100)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestInMemoryLongTermGetUnknown(t *testing.T) {
	archive := NewInMemoryLongTerm()
	_, err := archive.Get("missing")
	assert.Error(t, err)
}

func TestInMemoryLongTermReturnsCopies(t *testing.T) {
	archive := NewInMemoryLongTerm()
	require.NoError(t, archive.RecordRun(sampleRecord("run-1")))

	got, err := archive.Get("run-1")
	require.NoError(t, err)
	got.Plan.SubTasks[0].Description = "mutated"
	got.Evaluation.Steps[0].Score = 0

	again, err := archive.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "do the thing", again.Plan.SubTasks[0].Description)
	assert.Equal(t, 0.9, again.Evaluation.Steps[0].Score)
}
