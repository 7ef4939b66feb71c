package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReadTool(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	read := NewFileReadTool(func(o *FileToolOptions) { o.Root = root })

	t.Run("reads file content", func(t *testing.T) {
		result, err := read.Execute(ctx, map[string]any{"path": "notes.txt"})
		require.NoError(t, err)
		assert.Equal(t, "hello", result)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := read.Execute(ctx, map[string]any{"path": "nope.txt"})
		assert.Error(t, err)
	})

	t.Run("rejects path escaping the root", func(t *testing.T) {
		_, err := read.Execute(ctx, map[string]any{"path": "../outside.txt"})
		assert.Error(t, err)
	})

	t.Run("rejects absolute paths", func(t *testing.T) {
		_, err := read.Execute(ctx, map[string]any{"path": "/etc/hosts"})
		assert.Error(t, err)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, 64), 0o644))
		small := NewFileReadTool(func(o *FileToolOptions) {
			o.Root = root
			o.MaxBytes = 16
		})
		_, err := small.Execute(ctx, map[string]any{"path": "big.txt"})
		assert.Error(t, err)
	})
}

func TestFileWriteTool(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	write := NewFileWriteTool(func(o *FileToolOptions) { o.Root = root })

	t.Run("writes content and creates parents", func(t *testing.T) {
		_, err := write.Execute(ctx, map[string]any{
			"path":    "sub/dir/out.txt",
			"content": "written",
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(root, "sub", "dir", "out.txt"))
		require.NoError(t, err)
		assert.Equal(t, "written", string(data))
	})

	t.Run("rejects path escaping the root", func(t *testing.T) {
		_, err := write.Execute(ctx, map[string]any{"path": "../../escape.txt", "content": "x"})
		assert.Error(t, err)
	})
}

func TestFileListTool(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	list := NewFileListTool(func(o *FileToolOptions) { o.Root = root })

	result, err := list.Execute(ctx, map[string]any{})
	require.NoError(t, err)

	names, ok := result.([]string)
	require.True(t, ok)
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "sub/")
}
