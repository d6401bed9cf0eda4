package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/complior/complior-sub000/internal/engine"
)

// severityOrder ranks severities for the report; unknown labels sort last.
var severityOrder = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3, "info": 4}

func severityRank(s string) int {
	if r, ok := severityOrder[strings.ToLower(s)]; ok {
		return r
	}
	return len(severityOrder)
}

// Report renders a scan result as a markdown document. It is shown in the
// Report view and written by ExportReport.
func Report(res *engine.ScanResult, project string, at time.Time) string {
	var b strings.Builder
	b.WriteString("# EU AI Act compliance report\n\n")
	fmt.Fprintf(&b, "- **Project:** `%s`\n", project)
	fmt.Fprintf(&b, "- **Generated:** %s\n", at.Format("2006-01-02 15:04"))

	if res == nil {
		b.WriteString("\nNo scan has been run yet. Press `s` on the dashboard to scan.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "- **Score:** %.0f / 100\n", res.Score)
	fmt.Fprintf(&b, "- **Files scanned:** %d\n", res.FilesScanned)
	if res.Duration > 0 {
		fmt.Fprintf(&b, "- **Duration:** %s\n", (time.Duration(res.Duration) * time.Millisecond).String())
	}

	if len(res.Findings) == 0 {
		b.WriteString("\nNo findings.\n")
		return b.String()
	}

	counts := res.CountBySeverity()
	sevs := make([]string, 0, len(counts))
	for s := range counts {
		sevs = append(sevs, s)
	}
	sort.Slice(sevs, func(i, j int) bool {
		if ri, rj := severityRank(sevs[i]), severityRank(sevs[j]); ri != rj {
			return ri < rj
		}
		return sevs[i] < sevs[j]
	})

	b.WriteString("\n## Summary\n\n| Severity | Findings |\n|---|---|\n")
	for _, s := range sevs {
		fmt.Fprintf(&b, "| %s | %d |\n", s, counts[s])
	}

	findings := append([]engine.Finding(nil), res.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return severityRank(findings[i].Severity) < severityRank(findings[j].Severity)
	})

	b.WriteString("\n## Findings\n")
	for i, f := range findings {
		if i == 0 || f.Severity != findings[i-1].Severity {
			fmt.Fprintf(&b, "\n### %s\n\n", severityTitle(f.Severity))
		}
		fmt.Fprintf(&b, "- **%s**: %s", f.CheckID, f.Message)
		if loc := location(f); loc != "" {
			fmt.Fprintf(&b, " (`%s`)", loc)
		}
		b.WriteString("\n")
		if f.Obligation != "" {
			fmt.Fprintf(&b, "  - Obligation: %s\n", f.Obligation)
		}
		if f.HasFix() {
			fmt.Fprintf(&b, "  - Suggested fix: %s\n", f.Fix)
		}
	}
	return b.String()
}

func location(f engine.Finding) string {
	switch {
	case f.File == "":
		return ""
	case f.Line > 0:
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	default:
		return f.File
	}
}

func severityTitle(s string) string {
	if s == "" {
		return "Unclassified"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
