package thinking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/model"
	"github.com/planloop/planloop/stream"
)

func testRunContext(sink core.EventSink) *core.RunContext {
	return core.NewRunContext(context.Background(), "run-1", "test goal", sink, nil, nil, nil)
}

func TestEngineThink(t *testing.T) {
	mock := model.NewMock().EnqueueContent("The approach should be incremental.")
	engine := NewEngine(mock)
	rc := testRunContext(nil)

	answer, err := engine.Think(rc, "how to migrate the database")
	require.NoError(t, err)
	assert.Equal(t, "The approach should be incremental.", answer)

	thoughts := engine.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, ThoughtReasoning, thoughts[0].Type)
	assert.False(t, thoughts[0].Timestamp.IsZero())
}

func TestEngineObserve(t *testing.T) {
	engine := NewEngine(model.NewMock())
	rc := testRunContext(nil)

	engine.Observe(rc, "the build is green")

	thoughts := engine.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, ThoughtObservation, thoughts[0].Type)
	assert.Equal(t, "the build is green", thoughts[0].Content)
}

func TestEngineReflectOnAction(t *testing.T) {
	mock := model.NewMock().EnqueueContent("The write succeeded; the file can be read back.")
	engine := NewEngine(mock)
	rc := testRunContext(nil)

	answer, err := engine.ReflectOnAction(rc, "file_write poem.txt", "ok")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, ThoughtReflection, engine.Thoughts()[0].Type)
}

func TestEngineAnalyzeFailure(t *testing.T) {
	mock := model.NewMock().EnqueueContent("The URL was malformed; retry with a valid scheme.")
	engine := NewEngine(mock)
	rc := testRunContext(nil)

	answer, err := engine.AnalyzeFailure(rc, "fetch the page", "unsupported scheme")
	require.NoError(t, err)
	assert.Contains(t, answer, "retry")
	assert.Equal(t, ThoughtReflection, engine.Thoughts()[0].Type)
}

func TestEngineMakeDecision(t *testing.T) {
	t.Run("returns the matched option verbatim", func(t *testing.T) {
		mock := model.NewMock().EnqueueContent("I choose Retry because the failure looks transient.")
		engine := NewEngine(mock)
		rc := testRunContext(nil)

		choice, err := engine.MakeDecision(rc, "how to proceed", []string{"retry", "abort"})
		require.NoError(t, err)
		assert.Equal(t, "retry", choice)
		assert.Equal(t, ThoughtDecision, engine.Thoughts()[0].Type)
	})

	t.Run("returns the raw answer when no option matches", func(t *testing.T) {
		mock := model.NewMock().EnqueueContent("Neither, escalate instead.")
		engine := NewEngine(mock)
		rc := testRunContext(nil)

		choice, err := engine.MakeDecision(rc, "how to proceed", []string{"retry", "abort"})
		require.NoError(t, err)
		assert.Equal(t, "Neither, escalate instead.", choice)
	})
}

func TestEnginePublishesThinkingEvents(t *testing.T) {
	bus := stream.NewBus()
	sub := bus.Subscribe()

	mock := model.NewMock().EnqueueContent("reasoned")
	engine := NewEngine(mock)
	rc := testRunContext(bus)

	_, err := engine.Think(rc, "anything")
	require.NoError(t, err)

	event := <-sub.Events()
	assert.Equal(t, core.EventThinking, event.Type)
	assert.Equal(t, "reasoning", event.Data["thought_type"])
	assert.Equal(t, "reasoned", event.Data["content"])
}

func TestEngineSummaryAndClear(t *testing.T) {
	engine := NewEngine(model.NewMock())
	rc := testRunContext(nil)

	assert.Empty(t, engine.Summary())

	engine.Observe(rc, "first")
	engine.Observe(rc, "second")

	summary := engine.Summary()
	assert.Contains(t, summary, "[observation] first")
	assert.Contains(t, summary, "[observation] second")

	engine.Clear()
	assert.Empty(t, engine.Thoughts())
}

func TestEngineBoundsTrace(t *testing.T) {
	engine := NewEngine(model.NewMock(), func(o *Options) { o.MaxThoughts = 3 })
	rc := testRunContext(nil)

	for i := 0; i < 5; i++ {
		engine.Observe(rc, string(rune('a'+i)))
	}

	thoughts := engine.Thoughts()
	require.Len(t, thoughts, 3)
	assert.Equal(t, "c", thoughts[0].Content)
	assert.Equal(t, "e", thoughts[2].Content)
}

func TestEnginePropagatesModelErrors(t *testing.T) {
	mock := model.NewMock().EnqueueError(model.Fatal(errors.New("down")))
	engine := NewEngine(mock)
	rc := testRunContext(nil)

	_, err := engine.Think(rc, "anything")
	assert.Error(t, err)
	assert.Empty(t, engine.Thoughts())
}
