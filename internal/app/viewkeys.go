package app

import (
	"fmt"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/engine"
	"github.com/complior/complior-sub000/internal/keymap"
	"github.com/complior/complior-sub000/internal/overlay"
)

// viewKey handles a Normal-mode key whose meaning depends on the view.
func (c *Controller) viewKey(r rune) command.Command {
	switch c.st.View {
	case action.ViewDashboard:
		return c.dashboardKey(r)
	case action.ViewScan:
		return c.scanKey(r)
	case action.ViewFix:
		return c.fixKey(r)
	case action.ViewTimeline:
		if r == 'u' {
			return c.apply(action.OpenUndoHistory{})
		}
	case action.ViewReport:
		if r == 'e' {
			return c.exportReport(DefaultReportPath)
		}
	}
	return nil
}

func (c *Controller) dashboardKey(r rune) command.Command {
	switch r {
	case 's':
		return c.startScan(c.st.Project)
	case 'c':
		c.switchView(action.ViewChat)
		c.st.Mode = keymap.Insert
	}
	return nil
}

func (c *Controller) scanKey(r rune) command.Command {
	if r == 'r' {
		return c.startScan(c.st.Project)
	}
	if r == 'w' {
		c.st.Mode = keymap.Command
		c.st.ColonMode = true
		c.st.Cmdline.Set("whatif ")
		return nil
	}

	f := c.st.SelectedFinding()
	if f == nil {
		return nil
	}
	switch r {
	case 'd':
		c.st.Overlay = overlay.NewDismissModal(*f)
	case 'f':
		c.toggleQueued(f.ID)
	case 'x':
		return c.startChat(explainPrompt(f))
	}
	return nil
}

func (c *Controller) fixKey(r rune) command.Command {
	items := c.st.FixItems()
	switch r {
	case ' ':
		if c.st.FixCursor < len(items) {
			id := items[c.st.FixCursor].ID
			c.st.FixSelected[id] = !c.st.FixSelected[id]
		}
	case 'd':
		c.st.ShowDiff = !c.st.ShowDiff
	case 'p':
		return c.dryRun()
	case 'a':
		return c.acceptDiff()
	case 'r':
		c.rejectDiff()
	}
	return nil
}

// toggleQueued adds a finding to the fix queue, or removes it.
func (c *Controller) toggleQueued(id string) {
	for i, q := range c.st.FixQueue {
		if q == id {
			c.st.FixQueue = append(c.st.FixQueue[:i:i], c.st.FixQueue[i+1:]...)
			delete(c.st.FixSelected, id)
			c.setStatus("Removed from fix queue")
			return
		}
	}
	c.st.FixQueue = append(c.st.FixQueue, id)
	c.st.FixSelected[id] = true
	c.setStatus(fmt.Sprintf("Queued for fix (%d in queue)", len(c.st.FixQueue)))
}

// dryRun previews fixes for the selected findings, or the one under the
// cursor when nothing is selected.
func (c *Controller) dryRun() command.Command {
	items := c.st.FixItems()
	var ids []string
	for _, f := range items {
		if c.st.FixSelected[f.ID] {
			ids = append(ids, f.ID)
		}
	}
	if len(ids) == 0 && c.st.FixCursor < len(items) {
		ids = []string{items[c.st.FixCursor].ID}
	}
	if len(ids) == 0 {
		c.setStatus("Queue findings with f in the Scan view first")
		return nil
	}
	c.setStatus(fmt.Sprintf("Previewing %d fix(es)…", len(ids)))
	return command.FixDryRun{FindingIDs: ids}
}

func (c *Controller) exportReport(path string) command.Command {
	if c.st.LastScan == nil {
		c.setStatus("Nothing to export yet. Run a scan first")
		return nil
	}
	return command.ExportReport{Path: path}
}

func explainPrompt(f *engine.Finding) string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	p := fmt.Sprintf("Explain finding %s (%s severity) at %s: %s", f.CheckID, f.Severity, loc, f.Message)
	if f.Obligation != "" {
		p += fmt.Sprintf("\nRelated obligation: %s. What does it require and how do I fix this?", f.Obligation)
	}
	return p
}
