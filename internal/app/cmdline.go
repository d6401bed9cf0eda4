package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/overlay"
	"github.com/complior/complior-sub000/internal/session"
)

// viewAliases maps command-line view names to views.
var viewAliases = map[string]action.View{
	"dashboard": action.ViewDashboard,
	"scan-view": action.ViewScan,
	"fix":       action.ViewFix,
	"chat-view": action.ViewChat,
	"timeline":  action.ViewTimeline,
	"report":    action.ViewReport,
}

// parseView accepts both alias and plain view names.
func parseView(name string) (action.View, bool) {
	if v, ok := viewAliases[name]; ok {
		return v, true
	}
	for _, v := range action.Views() {
		if v.String() == name {
			return v, true
		}
	}
	return 0, false
}

// execute runs one command line typed after ':' or '/'.
func (c *Controller) execute(line string) command.Command {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	name = strings.ToLower(name)

	switch name {
	case "":
		return nil
	case "q", "quit", "exit":
		c.st.Running = false
	case "scan":
		return c.startScan(arg)
	case "chat":
		if arg == "" {
			return c.usage("chat <message>")
		}
		return c.startChat(arg)
	case "view":
		v, ok := parseView(arg)
		if !ok {
			c.system(fmt.Sprintf("Unknown view: %q", arg))
			return nil
		}
		c.switchView(v)
	case "fix":
		c.switchView(action.ViewFix)
		for _, f := range c.st.FixItems() {
			if c.st.FixSelected[f.ID] {
				return c.dryRun()
			}
		}
	case "dashboard", "scan-view", "chat-view", "timeline", "report":
		c.switchView(viewAliases[name])
	case "theme":
		if arg == "" {
			c.st.Overlay = overlay.NewThemePicker(c.opts.Themes, c.st.Theme)
			return nil
		}
		if len(c.opts.Themes) > 0 && !slices.Contains(c.opts.Themes, arg) {
			c.system(fmt.Sprintf("Unknown theme %q. Available: %s", arg, strings.Join(c.opts.Themes, ", ")))
			return nil
		}
		return command.SwitchTheme{Name: arg}
	case "model":
		return c.apply(action.OpenModelSelector{})
	case "provider", "login":
		return c.apply(action.OpenProviderSetup{})
	case "help":
		return c.apply(action.ToggleHelp{})
	case "files":
		return c.openFilePicker()
	case "onboarding":
		return c.apply(action.OpenOnboarding{})
	case "tips", "getting-started":
		return c.apply(action.OpenGettingStarted{})
	case "save":
		if arg == "" {
			return c.usage("save <name>")
		}
		return command.SaveSession{Name: arg}
	case "load":
		if arg == "" {
			return c.usage("load <name>")
		}
		return command.LoadSession{Name: arg}
	case "watch":
		enable := !c.st.Watching
		switch arg {
		case "on":
			enable = true
		case "off":
			enable = false
		}
		return command.ToggleWatch{Enable: enable}
	case "undo":
		if arg == "" {
			return c.apply(action.Undo{})
		}
		return command.Undo{ID: arg}
	case "history":
		return c.apply(action.OpenUndoHistory{})
	case "whatif":
		if arg == "" {
			return c.usage("whatif <scenario>")
		}
		c.st.Messages = append(c.st.Messages, session.NewMessage("user", "What if "+arg))
		c.switchView(action.ViewChat)
		return command.WhatIf{Scenario: arg}
	case "reconnect":
		return c.apply(action.Reconnect{})
	case "open":
		if arg == "" {
			return c.openFilePicker()
		}
		return command.OpenFile{Path: arg}
	case "clear":
		c.st.Messages = nil
		c.st.ChatBack = 0
		c.st.AutoScroll = true
		c.setStatus("Chat cleared")
	case "export":
		if arg == "" {
			arg = DefaultReportPath
		}
		return c.exportReport(arg)
	case "run":
		return c.runShell(arg)
	default:
		c.system(fmt.Sprintf("Unknown command: %s", name))
	}
	return nil
}

func (c *Controller) usage(syntax string) command.Command {
	c.system("Usage: :" + syntax)
	return nil
}
