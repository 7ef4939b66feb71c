// Package core defines the shared data model of the orchestration core: plans
// and subtasks with their status lifecycle, stream events, evaluation records,
// the collaboration transcript, working-memory messages and the per-run
// context object passed down to the engines.
//
// Types in this package are deliberately free of behavior beyond defensive
// copying and small helpers; the engines (planning, execution, evaluation,
// thinking) own all control flow.
package core
