package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/memory"
	"github.com/planloop/planloop/model"
)

func TestOrchestratorRunAcceptedFirstRound(t *testing.T) {
	planner := model.NewMock().EnqueueContent(`{
		"strategy": "single step",
		"subtasks": [{"id": 1, "description": "produce the report", "dependencies": []}]
	}`)
	executor := model.NewMock().EnqueueContent("report produced")
	reviewer := model.NewMock().
		EnqueueContent(goodStep).
		EnqueueContent(runSummary)

	archive := memory.NewInMemoryLongTerm()
	o := NewOrchestrator(planner, executor, reviewer, nil,
		func(opt *OrchestratorOptions) { opt.Archive = archive })

	result, err := o.Run(context.Background(), "produce a report")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "report produced", result.Output)

	// One round: planner never revised.
	assert.Equal(t, 1, planner.Calls())

	// The transcript records the role hand-offs.
	require.NotEmpty(t, result.Transcript)
	roles := map[core.Role]bool{}
	for _, msg := range result.Transcript {
		roles[msg.Role] = true
	}
	assert.True(t, roles[core.RolePlanner])
	assert.True(t, roles[core.RoleExecutor])
	assert.True(t, roles[core.RoleReviewer])

	// The archived record includes the transcript.
	record, err := archive.Get(result.RunID)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Transcript)
}

func TestOrchestratorRunRevisesAfterRejection(t *testing.T) {
	planner := model.NewMock().
		EnqueueContent(`{
			"strategy": "one shot",
			"subtasks": [{"id": 1, "description": "draft", "dependencies": []}]
		}`).
		EnqueueContent(`{
			"strategy": "draft then polish",
			"subtasks": [
				{"id": 1, "description": "draft", "dependencies": []},
				{"id": 2, "description": "polish", "dependencies": [1]}
			]
		}`)
	executor := model.NewMock().
		EnqueueContent("draft written").
		EnqueueContent("polished")
	reviewer := model.NewMock().
		// Round one: rejected.
		EnqueueContent(`{"success": false, "score": 0.3, "reasoning": "too rough", "issues": ["needs polish"]}`).
		EnqueueContent(`{"summary": "rough draft only"}`).
		// Round two: accepted.
		EnqueueContent(goodStep).
		EnqueueContent(goodStep).
		EnqueueContent(runSummary)

	o := NewOrchestrator(planner, executor, reviewer, nil)

	result, err := o.Run(context.Background(), "write a polished draft")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "polished", result.Output)
	assert.Equal(t, 2, planner.Calls())
	assert.Equal(t, 2, executor.Calls())

	// The completed draft subtask survived the revision untouched.
	draft := result.Plan.SubTask(1)
	require.NotNil(t, draft)
	assert.Equal(t, core.StatusCompleted, draft.Status)
	assert.Equal(t, "draft written", draft.Result.Output)
}

func TestOrchestratorRunBoundedRounds(t *testing.T) {
	planner := model.NewMock().
		EnqueueContent(`{"strategy": "s", "subtasks": [{"id": 1, "description": "try", "dependencies": []}]}`).
		EnqueueContent(`{"strategy": "s2", "subtasks": [
			{"id": 1, "description": "try", "dependencies": []},
			{"id": 2, "description": "try harder", "dependencies": []}
		]}`)
	executor := model.NewMock().
		EnqueueContent("attempt one").
		EnqueueContent("attempt two")
	reviewer := model.NewMock().
		EnqueueContent(`{"success": false, "score": 0.2, "reasoning": "bad"}`).
		EnqueueContent(`{"summary": "poor"}`).
		EnqueueContent(`{"success": false, "score": 0.2, "reasoning": "bad"}`).
		EnqueueContent(`{"success": false, "score": 0.2, "reasoning": "bad"}`).
		EnqueueContent(`{"summary": "still poor"}`)

	o := NewOrchestrator(planner, executor, reviewer, nil,
		func(opt *OrchestratorOptions) { opt.MaxRounds = 1 })

	result, err := o.Run(context.Background(), "an impossible goal")
	require.NoError(t, err)
	assert.False(t, result.Success)
	// One initial plan plus one revision, then the orchestrator stops.
	assert.Equal(t, 2, planner.Calls())
}

func TestOrchestratorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(model.NewMock(), model.NewMock(), model.NewMock(), nil)
	_, err := o.Run(ctx, "anything")
	assert.Error(t, err)
}
