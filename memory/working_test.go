package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
)

func TestWorkingMemoryAdd(t *testing.T) {
	t.Run("preserves insertion order", func(t *testing.T) {
		mem := NewWorkingMemory()
		mem.Add(core.NewMessage("user", "first"))
		mem.Add(core.NewMessage("assistant", "second"))

		msgs := mem.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "first", msgs[0].Content)
		assert.Equal(t, "second", msgs[1].Content)
	})

	t.Run("prunes oldest non-system messages at the bound", func(t *testing.T) {
		mem := NewWorkingMemory(func(o *WorkingMemoryOptions) { o.MaxMessages = 3 })
		mem.Add(core.NewMessage("system", "instructions"))
		mem.Add(core.NewMessage("user", "one"))
		mem.Add(core.NewMessage("user", "two"))
		mem.Add(core.NewMessage("user", "three"))

		msgs := mem.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "system", msgs[0].Role)
		assert.Equal(t, "two", msgs[1].Content)
		assert.Equal(t, "three", msgs[2].Content)
	})

	t.Run("drops oldest system message when nothing else remains", func(t *testing.T) {
		mem := NewWorkingMemory(func(o *WorkingMemoryOptions) { o.MaxMessages = 2 })
		mem.Add(core.NewMessage("system", "one"))
		mem.Add(core.NewMessage("system", "two"))
		mem.Add(core.NewMessage("system", "three"))

		msgs := mem.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "two", msgs[0].Content)
	})
}

func TestWorkingMemoryClear(t *testing.T) {
	mem := NewWorkingMemory()
	mem.Add(core.NewMessage("user", "hello"))
	require.Equal(t, 1, mem.Len())

	mem.Clear()
	assert.Equal(t, 0, mem.Len())
	assert.Empty(t, mem.Messages())
}

func TestWorkingMemoryReturnsCopies(t *testing.T) {
	mem := NewWorkingMemory()
	mem.Add(core.NewMessage("user", "original"))

	msgs := mem.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", mem.Messages()[0].Content)
}

func TestWorkingMemoryConcurrentAccess(t *testing.T) {
	mem := NewWorkingMemory(func(o *WorkingMemoryOptions) { o.MaxMessages = 50 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				mem.Add(core.NewMessage("user", fmt.Sprintf("msg-%d-%d", n, j)))
				_ = mem.Messages()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, mem.Len())
}
