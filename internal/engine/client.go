package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/complior/complior-sub000/internal/sse"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 30 * time.Second

// Client talks to the engine's HTTP API. It is safe for concurrent use; the
// streaming and request/response clients share one transport.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	transport *http.Transport
	httpCli   *http.Client
	streamCli *http.Client
}

// NewClient returns a client for the engine at baseURL.
func NewClient(baseURL string) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: tr,
		httpCli:   &http.Client{Transport: tr, Timeout: DefaultTimeout},
		streamCli: &http.Client{Transport: tr},
	}
}

// BaseURL returns the current engine address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at a new address, e.g. after a restart moved
// the engine to another port.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(u, "/")
	c.mu.Unlock()
}

// Close drops pooled connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// Status calls GET /status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.getJSON(ctx, "/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan runs a compliance scan of path.
func (c *Client) Scan(ctx context.Context, path string) (*ScanResult, error) {
	var out ScanResult
	if err := c.postJSON(ctx, "/scan", scanRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatStream posts message and feeds every decoded stream event to sink in
// arrival order. It returns after a Done event or when the body ends.
func (c *Client) ChatStream(ctx context.Context, message string, sink func(sse.Event)) error {
	resp, err := c.do(ctx, c.streamCli, http.MethodPost, "/chat", chatRequest{Message: message, Stream: true})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var p sse.Parser
	buf := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			_, _ = p.Write(buf[:n])
			for {
				ev, ok := p.Next()
				if !ok {
					break
				}
				sink(ev)
				if _, done := ev.(sse.Done); done {
					return nil
				}
			}
		}
		if rerr == io.EOF {
			// A trailing frame without its blank line is still delivered.
			if rest := p.Buffered(); strings.TrimSpace(rest) != "" {
				p.WriteString("\n\n")
				if ev, ok := p.Next(); ok {
					sink(ev)
				}
			}
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read chat stream: %w", rerr)
		}
	}
}

// RunCommand executes a shell command on the engine host.
func (c *Client) RunCommand(ctx context.Context, cmd string) (string, error) {
	return c.postText(ctx, "/shell", shellRequest{Command: cmd})
}

// ReadFile returns the contents of path as seen by the engine.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var out fileReadResponse
	if err := c.postJSON(ctx, "/file/read", fileReadRequest{Path: path}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// EditFile replaces oldStr with newStr in path.
func (c *Client) EditFile(ctx context.Context, path, oldStr, newStr string) (string, error) {
	return c.postText(ctx, "/file/edit", fileEditRequest{Path: path, OldString: oldStr, NewString: newStr})
}

// UndoHistory lists reversible changes, newest last.
func (c *Client) UndoHistory(ctx context.Context) ([]UndoEntry, error) {
	var out undoHistoryResponse
	if err := c.getJSON(ctx, "/undo/history", &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Undo reverts one change; an empty id reverts the latest.
func (c *Client) Undo(ctx context.Context, id string) (string, error) {
	return c.postText(ctx, "/undo", undoRequest{ID: id})
}

// Suggestions returns next-step hints for the current project.
func (c *Client) Suggestions(ctx context.Context) ([]string, error) {
	var out suggestionsResponse
	if err := c.getJSON(ctx, "/suggestions", &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// WhatIf asks the engine to evaluate a hypothetical scenario.
func (c *Client) WhatIf(ctx context.Context, scenario string) (string, error) {
	var out whatIfResponse
	if err := c.postJSON(ctx, "/whatif", whatIfRequest{Scenario: scenario}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// FixDryRun previews the edit that would fix the given findings.
func (c *Client) FixDryRun(ctx context.Context, findingIDs []string) (*DryRunDiff, error) {
	var out DryRunDiff
	if err := c.postJSON(ctx, "/fix/dry-run", dryRunRequest{FindingIDs: findingIDs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DismissFinding marks a finding as not applicable.
func (c *Client) DismissFinding(ctx context.Context, id, reason string) (string, error) {
	return c.postText(ctx, "/finding/dismiss", dismissRequest{ID: id, Reason: reason})
}

// ─── HTTP helpers ───────────────────────────────────────────────────────────────

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, cli *http.Client, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody, out any) error {
	resp, err := c.do(ctx, c.httpCli, http.MethodPost, path, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, c.httpCli, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postText(ctx context.Context, path string, reqBody any) (string, error) {
	resp, err := c.do(ctx, c.httpCli, http.MethodPost, path, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
