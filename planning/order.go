package planning

import (
	"fmt"
	"sort"

	"github.com/planloop/planloop/core"
)

// ExecutionOrder returns a topological ordering of the plan's subtask ids.
// The sort is stable: among subtasks whose dependencies are all satisfied,
// the one declared first in the plan comes first, so repeated calls on the
// same plan yield the same order. A cycle returns an error naming the
// involved subtasks.
func ExecutionOrder(plan *core.Plan) ([]int, error) {
	position := make(map[int]int, len(plan.SubTasks))
	indegree := make(map[int]int, len(plan.SubTasks))
	dependents := make(map[int][]int, len(plan.SubTasks))

	for i, st := range plan.SubTasks {
		position[st.ID] = i
		indegree[st.ID] = len(st.Dependencies)
	}
	for _, st := range plan.SubTasks {
		for _, dep := range st.Dependencies {
			dependents[dep] = append(dependents[dep], st.ID)
		}
	}

	ready := make([]int, 0, len(plan.SubTasks))
	for _, st := range plan.SubTasks {
		if indegree[st.ID] == 0 {
			ready = append(ready, st.ID)
		}
	}

	order := make([]int, 0, len(plan.SubTasks))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			return position[ready[a]] < position[ready[b]]
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(plan.SubTasks) {
		var stuck []int
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Ints(stuck)
		return nil, fmt.Errorf("dependency cycle involving subtasks %v", stuck)
	}
	return order, nil
}
