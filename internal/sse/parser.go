package sse

import (
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const doneMarker = "[DONE]"

// Parser accumulates raw stream bytes and hands out complete events.
// Chunks may be split anywhere; incomplete frames stay buffered.
type Parser struct {
	buf string
}

// Write appends a network chunk. It never fails.
func (p *Parser) Write(chunk []byte) (int, error) {
	p.buf += string(chunk)
	return len(chunk), nil
}

// WriteString appends a chunk given as text.
func (p *Parser) WriteString(s string) {
	p.buf += s
}

// Next returns the next complete event, or false when no full frame is
// buffered yet.
func (p *Parser) Next() (Event, bool) {
	return ExtractEvent(&p.buf)
}

// Buffered returns the bytes not yet consumed by Next.
func (p *Parser) Buffered() string {
	return p.buf
}

// Reset drops any buffered partial frame.
func (p *Parser) Reset() {
	p.buf = ""
}

// ExtractEvent consumes one complete frame from the front of buf and decodes
// it. When buf holds no frame terminator it is left untouched and false is
// returned. Frames without data lines (comments, keep-alives) are skipped.
func ExtractEvent(buf *string) (Event, bool) {
	for {
		end, sepLen := frameEnd(*buf)
		if end < 0 {
			return nil, false
		}
		frame := (*buf)[:end]
		*buf = (*buf)[end+sepLen:]
		if ev, ok := decodeFrame(frame); ok {
			return ev, true
		}
	}
}

// frameEnd finds the earliest blank-line terminator. Returns -1 if absent.
func frameEnd(s string) (int, int) {
	lf := strings.Index(s, "\n\n")
	crlf := strings.Index(s, "\r\n\r\n")
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0:
		return lf, 2
	case lf < 0 || crlf < lf:
		return crlf, 4
	default:
		return lf, 2
	}
}

func decodeFrame(frame string) (Event, bool) {
	var (
		data      []string
		eventName string
		hasData   bool
	)
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "data:"):
			hasData = true
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if !hasData {
		return nil, false
	}
	payload := strings.Join(data, "\n")
	if strings.TrimSpace(payload) == doneMarker {
		return Done{}, true
	}
	return decodePayload(payload, eventName), true
}

// wireFrame is the union of the JSON shapes the engine emits.
type wireFrame struct {
	Type             string          `json:"type"`
	Text             *string         `json:"text"`
	Content          *string         `json:"content"`
	Message          string          `json:"message"`
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Args             json.RawMessage `json:"args"`
	Result           json.RawMessage `json:"result"`
	IsError          bool            `json:"isError"`
	PromptTokens     int             `json:"promptTokens"`
	CompletionTokens int             `json:"completionTokens"`
	Choices          json.RawMessage `json:"choices"`
}

func decodePayload(payload, eventName string) Event {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return Token{Text: payload}
	}
	var f wireFrame
	if err := json.Unmarshal([]byte(trimmed), &f); err != nil {
		return Token{Text: payload}
	}
	if len(f.Choices) > 0 && string(f.Choices) != "null" {
		if ev, ok := decodeCompletionChunk(trimmed); ok {
			return ev
		}
	}
	kind := f.Type
	if kind == "" {
		kind = eventName
	}
	switch kind {
	case "thinking", "reasoning":
		return Thinking{Text: f.text()}
	case "tool_call":
		return ToolCall{ID: f.ID, Name: f.Name, Args: rawText(f.Args)}
	case "tool_result":
		return ToolResult{ID: f.ID, Name: f.Name, Result: rawText(f.Result), IsError: f.IsError}
	case "usage":
		return Usage{PromptTokens: f.PromptTokens, CompletionTokens: f.CompletionTokens}
	case "error":
		msg := f.Message
		if msg == "" {
			msg = f.text()
		}
		return Error{Message: msg}
	case "done":
		return Done{}
	}
	if f.Text != nil {
		return Token{Text: *f.Text}
	}
	if f.Type == "token" || f.Type == "text" || f.Type == "delta" {
		return Token{Text: f.text()}
	}
	return Token{Text: payload}
}

// decodeCompletionChunk handles the chat-completion delta shape.
func decodeCompletionChunk(payload string) (Event, bool) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, false
	}
	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			return Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
			}, true
		}
		return nil, false
	}
	delta := chunk.Choices[0].Delta
	if delta.Content == "" && len(delta.ToolCalls) > 0 {
		tc := delta.ToolCalls[0]
		return ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: tc.Function.Arguments}, true
	}
	if delta.Content == "" && chunk.Usage != nil {
		return Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
		}, true
	}
	return Token{Text: delta.Content}, true
}

func (f wireFrame) text() string {
	if f.Text != nil {
		return *f.Text
	}
	if f.Content != nil {
		return *f.Content
	}
	return ""
}

// rawText renders a JSON value as text: strings are unquoted, anything else
// is kept verbatim.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
