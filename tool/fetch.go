package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FetchToolOptions configure the HTTP fetch tool.
type FetchToolOptions struct {
	// Client overrides the HTTP client. Defaults to one with a 30s timeout.
	Client *http.Client
	// MaxBytes caps the response body. Defaults to 1 MiB.
	MaxBytes int64
	// UserAgent is sent with each request.
	UserAgent string
}

// FetchTool retrieves the body of an HTTP(S) URL. Bodies are truncated at
// MaxBytes so a large page cannot blow up the conversation context.
type FetchTool struct {
	opts FetchToolOptions
}

// NewFetchTool creates an HTTP fetch tool.
func NewFetchTool(optFns ...func(o *FetchToolOptions)) *FetchTool {
	opts := FetchToolOptions{
		MaxBytes:  1 << 20,
		UserAgent: "planloop/1.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FetchTool{opts: opts}
}

// Name implements Tool.
func (t *FetchTool) Name() string { return "http_fetch" }

// Description implements Tool.
func (t *FetchTool) Description() string {
	return "Fetch the body of an HTTP or HTTPS URL with a GET request. Large bodies are truncated."
}

// Parameters implements Tool.
func (t *FetchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Absolute http or https URL to fetch",
			},
		},
		"required": []string{"url"},
	}
}

// Execute implements Tool.
func (t *FetchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	raw, ok := args["url"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("url must be a non-empty string")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q, only http and https are allowed", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", raw, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.opts.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", raw, err)
	}

	return map[string]any{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"body":         string(body),
		"truncated":    int64(len(body)) == t.opts.MaxBytes,
	}, nil
}

var _ Tool = (*FetchTool)(nil)
