// Package sse decodes the engine's Server-Sent-Events style chat stream into
// typed events. Decoding never fails: a frame that cannot be understood is
// surfaced as a plain Token carrying the raw payload.
package sse

import "fmt"

// Event is one decoded stream event. The concrete types below are the only
// implementations.
type Event interface {
	isEvent()
}

// Token is a chunk of assistant text.
type Token struct {
	Text string
}

// Thinking is a chunk of model reasoning shown separately from the answer.
type Thinking struct {
	Text string
}

// ToolCall announces that the engine invoked a tool.
type ToolCall struct {
	ID   string
	Name string
	Args string
}

// ToolResult carries a finished tool invocation.
type ToolResult struct {
	ID      string
	Name    string
	Result  string
	IsError bool
}

// Usage reports token accounting for the request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Done terminates the stream.
type Done struct{}

// Error is an in-band error reported by the engine.
type Error struct {
	Message string
}

func (Token) isEvent()      {}
func (Thinking) isEvent()   {}
func (ToolCall) isEvent()   {}
func (ToolResult) isEvent() {}
func (Usage) isEvent()      {}
func (Done) isEvent()       {}
func (Error) isEvent()      {}

func (e Error) Error() string { return e.Message }

// Describe returns a short human label, used for logging.
func Describe(ev Event) string {
	switch e := ev.(type) {
	case Token:
		return fmt.Sprintf("token(%d bytes)", len(e.Text))
	case Thinking:
		return fmt.Sprintf("thinking(%d bytes)", len(e.Text))
	case ToolCall:
		return "tool_call " + e.Name
	case ToolResult:
		if e.IsError {
			return "tool_result " + e.Name + " (error)"
		}
		return "tool_result " + e.Name
	case Usage:
		return fmt.Sprintf("usage in=%d out=%d", e.PromptTokens, e.CompletionTokens)
	case Done:
		return "done"
	case Error:
		return "error: " + e.Message
	default:
		return "unknown"
	}
}
