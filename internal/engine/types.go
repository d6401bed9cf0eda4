package engine

import "time"

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Ready   bool   `json:"ready"`
	Version string `json:"version,omitempty"`
}

// Finding is one compliance issue reported by a scan.
type Finding struct {
	ID         string `json:"id"`
	CheckID    string `json:"checkId"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Obligation string `json:"obligationId,omitempty"`
	Fix        string `json:"fix,omitempty"`
}

// HasFix reports whether the engine proposed an automatic fix.
func (f Finding) HasFix() bool { return f.Fix != "" }

// ScanResult is the body of POST /scan.
type ScanResult struct {
	Score        float64   `json:"score"`
	Findings     []Finding `json:"findings"`
	FilesScanned int       `json:"filesScanned"`
	Duration     int64     `json:"duration"` // milliseconds
}

// CountBySeverity tallies findings per severity label.
func (r *ScanResult) CountBySeverity() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}

// UndoEntry is one reversible change recorded by the engine.
type UndoEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// DryRunDiff is the proposed edit returned by POST /fix/dry-run.
type DryRunDiff struct {
	Path      string `json:"path"`
	OldString string `json:"oldString"`
	NewString string `json:"newString"`
	Diff      string `json:"diff"`
}

type scanRequest struct {
	Path string `json:"path"`
}

type chatRequest struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

type shellRequest struct {
	Command string `json:"command"`
}

type fileReadRequest struct {
	Path string `json:"path"`
}

type fileReadResponse struct {
	Content string `json:"content"`
}

type fileEditRequest struct {
	Path      string `json:"path"`
	OldString string `json:"oldString"`
	NewString string `json:"newString"`
}

type undoHistoryResponse struct {
	Entries []UndoEntry `json:"entries"`
}

type undoRequest struct {
	ID string `json:"id,omitempty"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type whatIfRequest struct {
	Scenario string `json:"scenario"`
}

type whatIfResponse struct {
	Text string `json:"text"`
}

type dryRunRequest struct {
	FindingIDs []string `json:"findingIds"`
}

type dismissRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}
