package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
)

func planOf(subtasks ...*core.SubTask) *core.Plan {
	return &core.Plan{Goal: "test", SubTasks: subtasks}
}

func TestExecutionOrder(t *testing.T) {
	t.Run("respects dependencies", func(t *testing.T) {
		plan := planOf(
			&core.SubTask{ID: 3, Dependencies: []int{1, 2}},
			&core.SubTask{ID: 1},
			&core.SubTask{ID: 2, Dependencies: []int{1}},
		)
		order, err := ExecutionOrder(plan)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("breaks ties by declaration order", func(t *testing.T) {
		plan := planOf(
			&core.SubTask{ID: 5},
			&core.SubTask{ID: 2},
			&core.SubTask{ID: 9},
		)
		order, err := ExecutionOrder(plan)
		require.NoError(t, err)
		assert.Equal(t, []int{5, 2, 9}, order)
	})

	t.Run("is deterministic across calls", func(t *testing.T) {
		plan := planOf(
			&core.SubTask{ID: 1},
			&core.SubTask{ID: 2},
			&core.SubTask{ID: 3, Dependencies: []int{1}},
			&core.SubTask{ID: 4, Dependencies: []int{2}},
		)
		first, err := ExecutionOrder(plan)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := ExecutionOrder(plan)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("detects cycles", func(t *testing.T) {
		plan := planOf(
			&core.SubTask{ID: 1, Dependencies: []int{2}},
			&core.SubTask{ID: 2, Dependencies: []int{1}},
			&core.SubTask{ID: 3},
		)
		_, err := ExecutionOrder(plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
		assert.Contains(t, err.Error(), "1")
		assert.Contains(t, err.Error(), "2")
	})

	t.Run("handles the empty plan", func(t *testing.T) {
		order, err := ExecutionOrder(planOf())
		require.NoError(t, err)
		assert.Empty(t, order)
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("passes through bare JSON", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, extractJSON(`{"a": 1}`))
	})

	t.Run("strips json fences", func(t *testing.T) {
		in := "Some prose.\n```json\n{\"a\": 1}\n```\nMore prose."
		assert.Equal(t, `{"a": 1}`, extractJSON(in))
	})

	t.Run("strips bare fences", func(t *testing.T) {
		in := "```\n{\"a\": 1}\n```"
		assert.Equal(t, `{"a": 1}`, extractJSON(in))
	})

	t.Run("falls back to outermost braces", func(t *testing.T) {
		in := `The plan is {"a": {"b": 2}} as requested.`
		assert.Equal(t, `{"a": {"b": 2}}`, extractJSON(in))
	})
}
