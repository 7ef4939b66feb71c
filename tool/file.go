package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileToolOptions configure the filesystem tools.
type FileToolOptions struct {
	// Root confines all paths to a directory. Empty means the process
	// working directory.
	Root string
	// MaxBytes caps file reads. Defaults to 1 MiB.
	MaxBytes int64
}

// FileReadTool reads a text file relative to a configured root.
type FileReadTool struct {
	opts FileToolOptions
}

// NewFileReadTool creates a file reading tool.
func NewFileReadTool(optFns ...func(o *FileToolOptions)) *FileReadTool {
	return &FileReadTool{opts: fileOptions(optFns)}
}

// Name implements Tool.
func (t *FileReadTool) Name() string { return "file_read" }

// Description implements Tool.
func (t *FileReadTool) Description() string {
	return "Read the contents of a text file. Use for inspecting files before modifying them."
}

// Parameters implements Tool.
func (t *FileReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read, relative to the workspace root",
			},
		},
		"required": []string{"path"},
	}
}

// Execute implements Tool.
func (t *FileReadTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	path, err := resolvePath(t.opts.Root, args["path"])
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > t.opts.MaxBytes {
		return nil, fmt.Errorf("%s is %d bytes, exceeds limit of %d", path, info.Size(), t.opts.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// FileWriteTool writes a text file relative to a configured root, creating
// parent directories as needed.
type FileWriteTool struct {
	opts FileToolOptions
}

// NewFileWriteTool creates a file writing tool.
func NewFileWriteTool(optFns ...func(o *FileToolOptions)) *FileWriteTool {
	return &FileWriteTool{opts: fileOptions(optFns)}
}

// Name implements Tool.
func (t *FileWriteTool) Name() string { return "file_write" }

// Description implements Tool.
func (t *FileWriteTool) Description() string {
	return "Write content to a text file, replacing any existing content. Parent directories are created."
}

// Parameters implements Tool.
func (t *FileWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write, relative to the workspace root",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content to write",
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute implements Tool.
func (t *FileWriteTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	path, err := resolvePath(t.opts.Root, args["path"])
	if err != nil {
		return nil, err
	}
	content, _ := args["content"].(string)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directories for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return map[string]any{"path": path, "bytes": len(content)}, nil
}

// FileListTool lists directory entries relative to a configured root.
type FileListTool struct {
	opts FileToolOptions
}

// NewFileListTool creates a directory listing tool.
func NewFileListTool(optFns ...func(o *FileToolOptions)) *FileListTool {
	return &FileListTool{opts: fileOptions(optFns)}
}

// Name implements Tool.
func (t *FileListTool) Name() string { return "file_list" }

// Description implements Tool.
func (t *FileListTool) Description() string {
	return "List the entries of a directory. Directories are suffixed with a slash."
}

// Parameters implements Tool.
func (t *FileListTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list, relative to the workspace root. Defaults to the root itself.",
			},
		},
	}
}

// Execute implements Tool.
func (t *FileListTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	raw := args["path"]
	if raw == nil || raw == "" {
		raw = "."
	}
	path, err := resolvePath(t.opts.Root, raw)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func fileOptions(optFns []func(o *FileToolOptions)) FileToolOptions {
	opts := FileToolOptions{MaxBytes: 1 << 20}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}
	return opts
}

// resolvePath joins raw onto root and rejects escapes above it.
func resolvePath(root string, raw any) (string, error) {
	rel, ok := raw.(string)
	if !ok || rel == "" {
		return "", fmt.Errorf("path must be a non-empty string")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be relative to the workspace root")
	}
	joined := filepath.Join(root, rel)
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace root", rel)
	}
	return joined, nil
}

var (
	_ Tool = (*FileReadTool)(nil)
	_ Tool = (*FileWriteTool)(nil)
	_ Tool = (*FileListTool)(nil)
)
