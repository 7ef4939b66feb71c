package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["collab"])
	assert.True(t, names["serve"])
}

func TestCollabCommandRunsWithMockModel(t *testing.T) {
	t.Setenv("PLANLOOP_MODEL_PROVIDER", "mock")
	t.Setenv("PLANLOOP_LOGGING_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"collab", "summarize the release notes"})

	require.NoError(t, root.Execute())

	printed := out.String()
	assert.Contains(t, printed, "OK")
	assert.Contains(t, printed, "planner -> executor")
	assert.Contains(t, printed, "executor -> reviewer")
}

func TestCollabCommandRejectsUnknownProvider(t *testing.T) {
	t.Setenv("PLANLOOP_MODEL_PROVIDER", "carrier-pigeon")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"collab", "anything"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
