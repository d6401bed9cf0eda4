package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/engine"
)

func typeText(o Overlay, s string) {
	for _, r := range s {
		o.Handle(action.InsertChar{Char: r})
	}
}

func TestOnboardingRadioSelection(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 0)

	o.Handle(action.MoveDown{})
	o.Handle(action.MoveDown{})
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.MoveRight{})
	require.Equal(t, 1, o.StepIndex())

	// later steps never touch the first one
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.MoveDown{})
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.MoveRight{})
	o.Handle(action.MoveLeft{})
	o.Handle(action.MoveLeft{})

	require.Equal(t, []int{2}, o.Selection(0))
}

func TestOnboardingRadioReplaces(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 0)
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.MoveDown{})
	o.Handle(action.ViewKey{Key: ' '})
	require.Equal(t, []int{1}, o.Selection(0))
}

func TestOnboardingCheckboxToggles(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 1)

	o.Handle(action.MoveDown{})
	o.Handle(action.MoveDown{})
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.MoveUp{})
	o.Handle(action.MoveUp{})
	o.Handle(action.ViewKey{Key: ' '})
	require.Equal(t, []int{0, 2}, o.Selection(1))

	o.Handle(action.ViewKey{Key: ' '})
	require.Equal(t, []int{2}, o.Selection(1))
}

func TestOnboardingEscapeSavesStep(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 0)
	o.Handle(action.Submit{})
	o.Handle(action.Submit{})

	res := o.Handle(action.Cancel{})
	require.True(t, res.Close)
	require.Equal(t, command.SaveOnboardingPartial{Step: 2}, res.Cmd)
}

func TestOnboardingResumeClamped(t *testing.T) {
	require.Equal(t, 3, NewOnboarding(OnboardingSteps, 3).StepIndex())
	require.Equal(t, len(OnboardingSteps)-1, NewOnboarding(OnboardingSteps, 99).StepIndex())
	require.Equal(t, 0, NewOnboarding(OnboardingSteps, -1).StepIndex())
}

func TestOnboardingProviderStep(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 3)
	require.False(t, o.TakesText())

	// openai is the third provider
	o.Handle(action.MoveDown{})
	o.Handle(action.MoveDown{})
	o.Handle(action.Submit{})
	require.Equal(t, StepEnterKey, o.KeyStep())
	require.True(t, o.TakesText())

	typeText(o, "sk-ant-REDACTED")
	res := o.Handle(action.Submit{})
	require.Nil(t, res.Cmd)
	require.Equal(t, StepEnterKey, o.KeyStep())
	require.NotEmpty(t, o.KeyErr())

	for range "sk-ant-REDACTED" {
		o.Handle(action.DeleteBack{})
	}
	key := "sk-proj-abcdefghijklmnopqrstuvwxyz"
	typeText(o, key)
	res = o.Handle(action.Submit{})
	require.Equal(t, command.SaveProviderConfig{Provider: "openai", Model: "gpt-4o", APIKey: key}, res.Cmd)
	require.Equal(t, StepVerifying, o.KeyStep())

	o.ProviderSaved(nil)
	require.Equal(t, StepResult, o.KeyStep())
	o.Handle(action.Submit{})
	require.Equal(t, 4, o.StepIndex())
}

func TestOnboardingSkipProvider(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 3)
	o.Handle(action.Bottom{})
	o.Handle(action.Submit{})
	require.Equal(t, 4, o.StepIndex())
	require.Nil(t, o.Answers()["provider"])
}

func TestOnboardingCompletes(t *testing.T) {
	o := NewOnboarding(OnboardingSteps, 0)
	o.Handle(action.Submit{}) // role: first option
	o.Handle(action.MoveDown{})
	o.Handle(action.ViewKey{Key: ' '})
	o.Handle(action.Submit{}) // obligations
	o.Handle(action.Submit{}) // jurisdiction
	o.Handle(action.Bottom{})
	o.Handle(action.Submit{}) // skip provider
	res := o.Handle(action.Submit{})

	require.True(t, res.Close)
	require.True(t, o.Completed())
	done, ok := res.Cmd.(command.CompleteOnboarding)
	require.True(t, ok)

	want := map[string][]string{
		"role":         {"Deployer (we use AI systems)"},
		"obligations":  {"Risk management (Art. 9)"},
		"jurisdiction": {"European Union"},
		"provider":     nil,
		"scope":        {"Whole project"},
	}
	if diff := cmp.Diff(want, done.Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, done.Summary, "Role: Deployer (we use AI systems)")
	require.Contains(t, done.Summary, "AI provider: not set")
}

func TestProviderSetupFlow(t *testing.T) {
	p := NewProviderSetup()
	require.Equal(t, StepSelectProvider, p.Step())

	p.Handle(action.Submit{})
	require.Equal(t, StepEnterKey, p.Step())
	require.Equal(t, "openrouter", p.Provider())

	res := p.Handle(action.Submit{})
	require.Equal(t, Result{}, res, "empty key is a no-op")
	require.Equal(t, StepEnterKey, p.Step())

	typeText(p, "sk-or-v1-0123456789abcdef")
	res = p.Handle(action.Submit{})
	cmd, ok := res.Cmd.(command.SaveProviderConfig)
	require.True(t, ok)
	require.Equal(t, "openrouter", cmd.Provider)
	require.Equal(t, StepVerifying, p.Step())
	require.False(t, p.TakesText())

	p.ProviderSaved(errors.New("disk full"))
	require.Equal(t, StepResult, p.Step())
	require.False(t, p.Succeeded())
	require.Equal(t, "disk full", p.Err())

	p.Handle(action.ViewKey{Key: 'r'})
	require.Equal(t, StepEnterKey, p.Step())
	require.Empty(t, p.MaskedKey())
}

func TestProviderSetupSuccessCloses(t *testing.T) {
	p := NewProviderSetup()
	p.Handle(action.MoveDown{})
	p.Handle(action.Submit{})
	typeText(p, "sk-ant-REDACTED")
	p.Handle(action.Submit{})
	p.ProviderSaved(nil)

	require.True(t, p.Succeeded())
	p.Handle(action.ViewKey{Key: 'r'})
	require.Equal(t, StepResult, p.Step(), "retry only after failure")
	require.True(t, p.Handle(action.Submit{}).Close)
}

func TestProviderSavedIgnoredOutsideVerifying(t *testing.T) {
	p := NewProviderSetup()
	p.ProviderSaved(nil)
	require.Equal(t, StepSelectProvider, p.Step())
}

func TestMaskedKey(t *testing.T) {
	p := NewProviderSetup()
	p.Handle(action.Submit{})
	typeText(p, "sk-or-secret")
	require.Equal(t, "••••••••cret", p.MaskedKey())
}

func TestConfirmDialog(t *testing.T) {
	pending := command.Undo{}
	cases := []struct {
		name string
		in   action.Action
		want Result
	}{
		{"yes", action.ViewKey{Key: 'y'}, Result{Close: true, Cmd: pending}},
		{"enter", action.Submit{}, Result{Close: true, Cmd: pending}},
		{"no", action.ViewKey{Key: 'n'}, Result{Close: true}},
		{"esc", action.Cancel{}, Result{Close: true}},
		{"other", action.MoveDown{}, Result{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewConfirm("Undo", "Undo the last change?", pending)
			require.Equal(t, tc.want, d.Handle(tc.in))
		})
	}
}

func TestCommandPaletteFilters(t *testing.T) {
	p := NewCommandPalette(DefaultPalette)
	require.Len(t, p.Matches(), len(DefaultPalette))

	typeText(p, "theme")
	require.NotEmpty(t, p.Matches())
	require.Equal(t, "Switch theme", p.Entry(p.Matches()[0].Index).Title)

	res := p.Handle(action.Submit{})
	require.True(t, res.Close)
	require.Equal(t, action.Execute{Line: "theme"}, res.Then)
	require.Nil(t, res.Cmd)
}

func TestCommandPaletteNoMatch(t *testing.T) {
	p := NewCommandPalette(DefaultPalette)
	typeText(p, "zzzzzz")
	require.Empty(t, p.Matches())
	require.Equal(t, Result{}, p.Handle(action.Submit{}))

	for range "zzzzzz" {
		p.Handle(action.DeleteBack{})
	}
	require.Empty(t, p.Filter())
	require.Len(t, p.Matches(), len(DefaultPalette))
}

func TestFilePicker(t *testing.T) {
	p := NewFilePicker([]string{"README.md", "src/agent.ts", "src/model/card.ts"})
	typeText(p, "card")
	require.Len(t, p.Matches(), 1)

	res := p.Handle(action.Submit{})
	require.Equal(t, Result{Close: true, Cmd: command.OpenFile{Path: "src/model/card.ts"}}, res)
}

func TestUndoHistory(t *testing.T) {
	u := NewUndoHistory()
	require.True(t, u.Loading)
	require.Equal(t, Result{}, u.Handle(action.Submit{}))

	u.SetEntries([]engine.UndoEntry{{ID: "u2"}, {ID: "u1"}}, nil)
	u.Handle(action.MoveDown{})
	u.Handle(action.MoveDown{})
	require.Equal(t, 1, u.Cursor())
	require.Equal(t, Result{Close: true, Cmd: command.Undo{ID: "u1"}}, u.Handle(action.Submit{}))
}

func TestUndoHistoryError(t *testing.T) {
	u := NewUndoHistory()
	u.SetEntries(nil, errors.New("offline"))
	require.False(t, u.Loading)
	require.Equal(t, "offline", u.Err)
}

func TestDismissModal(t *testing.T) {
	d := NewDismissModal(engine.Finding{ID: "f-1"})
	d.Handle(action.MoveDown{})
	res := d.Handle(action.Submit{})
	require.Equal(t, Result{Close: true, Cmd: command.DismissFinding{ID: "f-1", Reason: DismissReasons[1]}}, res)
}

func TestThemePicker(t *testing.T) {
	tp := NewThemePicker([]string{"dark", "light", "mono"}, "light")
	require.Equal(t, "light", tp.Preview())

	tp.Handle(action.MoveDown{})
	require.Equal(t, "mono", tp.Preview())
	require.Equal(t, Result{Close: true, Cmd: command.SwitchTheme{Name: "mono"}}, tp.Handle(action.Submit{}))

	tp = NewThemePicker([]string{"dark", "light"}, "dark")
	tp.Handle(action.MoveDown{})
	require.Equal(t, Result{Close: true}, tp.Handle(action.Cancel{}))
}

func TestModelSelectorOrdersCurrentProviderFirst(t *testing.T) {
	s := NewModelSelector(Catalog, "openai", "gpt-4o-mini")
	require.Equal(t, "openai", s.Models[0].Provider)
	require.Equal(t, "gpt-4o-mini", s.Models[s.Cursor()].ID)

	res := s.Handle(action.Submit{})
	require.Equal(t, command.SelectModel{Provider: "openai", Model: "gpt-4o-mini"}, res.Cmd)
}

func TestHelpScrollAndClose(t *testing.T) {
	h := NewHelp([]HelpSection{{Title: "Global", Rows: [][2]string{{"q", "quit"}, {"?", "help"}}}})
	h.Handle(action.MoveDown{})
	require.Equal(t, 1, h.Offset())
	h.Handle(action.Bottom{})
	require.Equal(t, 3, h.Offset())
	h.Handle(action.MoveDown{})
	require.Equal(t, 3, h.Offset())
	require.True(t, h.Handle(action.ToggleHelp{}).Close)
}

func TestGettingStartedPages(t *testing.T) {
	g := NewGettingStarted(Tour)
	for range len(Tour) - 1 {
		require.False(t, g.Handle(action.Submit{}).Close)
	}
	require.Equal(t, len(Tour)-1, g.Page())
	g.Handle(action.MoveLeft{})
	require.Equal(t, len(Tour)-2, g.Page())
	g.Handle(action.MoveRight{})
	require.True(t, g.Handle(action.Submit{}).Close)
}

func TestUnknownActionsAreNoOps(t *testing.T) {
	overlays := []Overlay{
		NewCommandPalette(DefaultPalette),
		NewFilePicker(nil),
		NewHelp(nil),
		NewGettingStarted(Tour),
		NewProviderSetup(),
		NewModelSelector(Catalog, "openai", ""),
		NewThemePicker([]string{"dark"}, "dark"),
		NewOnboarding(OnboardingSteps, 0),
		NewConfirm("t", "m", command.Undo{}),
		NewUndoHistory(),
		NewDismissModal(engine.Finding{ID: "x"}),
	}
	for _, o := range overlays {
		for _, a := range []action.Action{action.None{}, action.Resize{Width: 1}, action.ToggleWatch{}, action.Click{}} {
			require.Equal(t, Result{}, o.Handle(a), "%s on %T", o.Kind(), a)
		}
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "just now", Age(now, now.Add(-10*time.Second)))
	require.Equal(t, "5m0s", Age(now, now.Add(-5*time.Minute-20*time.Second)))
	require.Equal(t, "Mar 1 09:00", Age(now, now.Add(-3*time.Hour)))
}
