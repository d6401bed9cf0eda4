package overlay

// onboarding.go: first-run wizard. Five steps collect the user's role,
// obligation focus, jurisdiction, AI provider and initial scan scope.
//
// j/k move the cursor, space toggles, enter selects and advances, left/right
// step back and forth. Esc saves the current step so the wizard can resume.

import (
	"fmt"
	"strings"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
)

// ─── Domain types ─────────────────────────────────────────────────────────────

// StepKind decides how a step's options are selected.
type StepKind int

const (
	Radio StepKind = iota
	Checkbox
	TextInput
)

// Step is one page of the wizard.
type Step struct {
	ID      string
	Title   string
	Kind    StepKind
	Options []string
}

// OnboardingSteps is the wizard content in order.
var OnboardingSteps = []Step{
	{
		ID:    "role",
		Title: "What is your role under the EU AI Act?",
		Kind:  Radio,
		Options: []string{
			"Deployer (we use AI systems)",
			"Provider (we build AI systems)",
			"Importer or distributor",
			"Not sure yet",
		},
	},
	{
		ID:    "obligations",
		Title: "Which obligations matter most right now?",
		Kind:  Checkbox,
		Options: []string{
			"AI literacy (Art. 4)",
			"Risk management (Art. 9)",
			"Data governance (Art. 10)",
			"Record-keeping and logging (Art. 12)",
			"Human oversight (Art. 14)",
			"Transparency to users (Art. 50)",
		},
	},
	{
		ID:    "jurisdiction",
		Title: "Where do you place AI systems on the market?",
		Kind:  Radio,
		Options: []string{
			"European Union",
			"EU and United Kingdom",
			"Worldwide",
			"Outside the EU only",
		},
	},
	{
		ID:    "provider",
		Title: "Connect an AI provider for chat and explanations",
		Kind:  TextInput,
	},
	{
		ID:    "scope",
		Title: "What should the first scan cover?",
		Kind:  Radio,
		Options: []string{
			"Whole project",
			"Source directory only",
			"Skip the first scan",
		},
	},
}

// ─── State ────────────────────────────────────────────────────────────────────

// Onboarding is the wizard state. Selections are kept per step so going back
// and forth never loses earlier answers.
type Onboarding struct {
	Steps     []Step
	step      int
	cur       []cursor
	selected  [][]int
	flow      keyFlow
	completed bool
}

// NewOnboarding opens the wizard at start, clamped to the step range.
func NewOnboarding(steps []Step, start int) *Onboarding {
	o := &Onboarding{
		Steps:    steps,
		cur:      make([]cursor, len(steps)),
		selected: make([][]int, len(steps)),
		flow:     newKeyFlow(true),
	}
	for i, s := range steps {
		o.cur[i].setLen(len(s.Options))
	}
	o.step = max(0, min(start, len(steps)-1))
	return o
}

func (o *Onboarding) Kind() Kind { return KindOnboarding }

func (o *Onboarding) TakesText() bool {
	return o.current().Kind == TextInput && o.flow.step == StepEnterKey
}

func (o *Onboarding) current() Step       { return o.Steps[o.step] }
func (o *Onboarding) StepIndex() int      { return o.step }
func (o *Onboarding) Cursor() int         { return o.cur[o.step].pos }
func (o *Onboarding) Completed() bool     { return o.completed }
func (o *Onboarding) KeyStep() KeyStep    { return o.flow.step }
func (o *Onboarding) KeyErr() string      { return o.flow.err }
func (o *Onboarding) MaskedKey() string   { return o.flow.masked() }
func (o *Onboarding) KeyProvider() string { return o.flow.provider }
func (o *Onboarding) KeySucceeded() bool  { return o.flow.ok }

// KeyCursor is the highlighted row on the provider step.
func (o *Onboarding) KeyCursor() int { return o.flow.cur.pos }

// Selection returns the selected option indexes of step i in order.
func (o *Onboarding) Selection(i int) []int {
	return append([]int(nil), o.selected[i]...)
}

// ProviderSaved delivers the result of the provider step's save command.
func (o *Onboarding) ProviderSaved(err error) { o.flow.saved(err) }

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (o *Onboarding) Handle(a action.Action) Result {
	if isDismiss(a) {
		return Result{Close: true, Cmd: command.SaveOnboardingPartial{Step: o.step}}
	}
	if o.current().Kind == TextInput {
		return o.handleProvider(a)
	}

	switch a := a.(type) {
	case action.MoveUp, action.MoveDown, action.Top, action.Bottom:
		o.cur[o.step].move(a)
	case action.ViewKey:
		if a.Key == ' ' || a.Key == 'x' {
			o.toggle()
		}
	case action.MoveLeft:
		o.prev()
	case action.MoveRight:
		return o.next()
	case action.Submit:
		if o.current().Kind == Radio && len(o.selected[o.step]) == 0 {
			o.toggle()
		}
		return o.next()
	}
	return Result{}
}

func (o *Onboarding) handleProvider(a action.Action) Result {
	if o.flow.step == StepSelectProvider {
		switch a.(type) {
		case action.MoveLeft:
			o.prev()
			return Result{}
		case action.MoveRight:
			return o.next()
		}
	}
	cmd, out := o.flow.handle(a)
	if out == flowDone {
		return o.next()
	}
	return emit(cmd)
}

// toggle applies the step's selection rule at the cursor: Radio replaces the
// selection, Checkbox flips membership.
func (o *Onboarding) toggle() {
	s := o.current()
	if len(s.Options) == 0 {
		return
	}
	pos := o.cur[o.step].pos
	switch s.Kind {
	case Radio:
		o.selected[o.step] = []int{pos}
	case Checkbox:
		sel := o.selected[o.step]
		for i, v := range sel {
			if v == pos {
				o.selected[o.step] = append(sel[:i:i], sel[i+1:]...)
				return
			}
		}
		o.selected[o.step] = insertSorted(sel, pos)
	}
}

func insertSorted(s []int, v int) []int {
	out := make([]int, 0, len(s)+1)
	done := false
	for _, x := range s {
		if !done && v < x {
			out = append(out, v)
			done = true
		}
		out = append(out, x)
	}
	if !done {
		out = append(out, v)
	}
	return out
}

func (o *Onboarding) prev() {
	if o.step > 0 {
		o.step--
	}
}

// next advances, or completes the wizard on the last step.
func (o *Onboarding) next() Result {
	if o.step < len(o.Steps)-1 {
		o.step++
		return Result{}
	}
	o.completed = true
	return Result{
		Close: true,
		Cmd:   command.CompleteOnboarding{Answers: o.Answers(), Summary: o.Summary()},
	}
}

// Answers maps each step ID to the chosen option labels.
func (o *Onboarding) Answers() map[string][]string {
	out := make(map[string][]string, len(o.Steps))
	for i, s := range o.Steps {
		if s.Kind == TextInput {
			out[s.ID] = nil
			if o.flow.ok {
				out[s.ID] = []string{o.flow.provider}
			}
			continue
		}
		labels := make([]string, 0, len(o.selected[i]))
		for _, idx := range o.selected[i] {
			labels = append(labels, s.Options[idx])
		}
		out[s.ID] = labels
	}
	return out
}

// Summary is the human-readable recap shown after completion.
func (o *Onboarding) Summary() string {
	answers := o.Answers()
	var b strings.Builder
	for _, s := range o.Steps {
		val := strings.Join(answers[s.ID], ", ")
		if val == "" {
			val = "not set"
		}
		fmt.Fprintf(&b, "%s: %s\n", summaryLabel(s.ID), val)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func summaryLabel(id string) string {
	switch id {
	case "role":
		return "Role"
	case "obligations":
		return "Focus"
	case "jurisdiction":
		return "Jurisdiction"
	case "provider":
		return "AI provider"
	case "scope":
		return "First scan"
	}
	return id
}
