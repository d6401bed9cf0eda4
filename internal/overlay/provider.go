package overlay

// provider.go: AI provider setup. Pick a provider, paste a key, wait for the
// executor to store it, then show the outcome. The same flow is embedded in
// the onboarding wizard's provider step.

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/complior/complior-sub000/internal/action"
	"github.com/complior/complior-sub000/internal/command"
	"github.com/complior/complior-sub000/internal/config"
)

// KeyStep is the position inside the provider/key flow.
type KeyStep int

const (
	StepSelectProvider KeyStep = iota
	StepEnterKey
	StepVerifying
	StepResult
)

func (s KeyStep) String() string {
	switch s {
	case StepSelectProvider:
		return "select provider"
	case StepEnterKey:
		return "enter key"
	case StepVerifying:
		return "verifying"
	case StepResult:
		return "result"
	}
	return "unknown"
}

type flowOutcome int

const (
	flowContinue flowOutcome = iota
	flowDone
	flowDismiss
)

// keyFlow is the provider → key → verify → result machine.
type keyFlow struct {
	step      KeyStep
	providers []config.ProviderInfo
	cur       cursor
	provider  string
	key       string
	err       string
	ok        bool
	skippable bool
	skipped   bool
}

func newKeyFlow(skippable bool) keyFlow {
	f := keyFlow{providers: config.ProviderRegistry, skippable: skippable}
	f.cur.setLen(f.rows())
	return f
}

func (f *keyFlow) rows() int {
	if f.skippable {
		return len(f.providers) + 1
	}
	return len(f.providers)
}

func (f *keyFlow) handle(a action.Action) (command.Command, flowOutcome) {
	if isDismiss(a) {
		return nil, flowDismiss
	}
	switch f.step {
	case StepSelectProvider:
		if f.cur.move(a) {
			return nil, flowContinue
		}
		if _, ok := a.(action.Submit); ok {
			if f.cur.pos >= len(f.providers) {
				f.skipped = true
				return nil, flowDone
			}
			f.provider = f.providers[f.cur.pos].Key
			f.key, f.err = "", ""
			f.step = StepEnterKey
		}

	case StepEnterKey:
		switch a := a.(type) {
		case action.InsertChar:
			if utf8.ValidRune(a.Char) && !unicode.IsControl(a.Char) {
				f.key += string(a.Char)
			}
		case action.DeleteBack:
			if f.key != "" {
				_, size := utf8.DecodeLastRuneInString(f.key)
				f.key = f.key[:len(f.key)-size]
			}
		case action.Submit:
			key := strings.TrimSpace(f.key)
			if key == "" {
				return nil, flowContinue
			}
			if err := config.ValidateKey(f.provider, key); err != nil {
				f.err = err.Error()
				return nil, flowContinue
			}
			f.err = ""
			f.step = StepVerifying
			model := ""
			if info := config.LookupProvider(f.provider); info != nil {
				model = info.DefaultModel
			}
			return command.SaveProviderConfig{Provider: f.provider, Model: model, APIKey: key}, flowContinue
		}

	case StepVerifying:
		// waiting for saved()

	case StepResult:
		switch a := a.(type) {
		case action.Submit:
			return nil, flowDone
		case action.ViewKey:
			if a.Key == 'r' && !f.ok {
				f.key = ""
				f.step = StepEnterKey
			}
		}
	}
	return nil, flowContinue
}

// saved records the executor's answer to SaveProviderConfig.
func (f *keyFlow) saved(err error) {
	if f.step != StepVerifying {
		return
	}
	f.step = StepResult
	f.ok = err == nil
	if err != nil {
		f.err = err.Error()
	}
}

// masked hides all but the last four characters of the typed key.
func (f *keyFlow) masked() string {
	n := utf8.RuneCountInString(f.key)
	if n <= 4 {
		return strings.Repeat("•", n)
	}
	r := []rune(f.key)
	return strings.Repeat("•", n-4) + string(r[n-4:])
}

// ─── Provider setup ───────────────────────────────────────────────────────────

// ProviderSetup is the standalone provider configuration dialog.
type ProviderSetup struct {
	flow keyFlow
}

func NewProviderSetup() *ProviderSetup {
	return &ProviderSetup{flow: newKeyFlow(false)}
}

func (p *ProviderSetup) Kind() Kind      { return KindProviderSetup }
func (p *ProviderSetup) TakesText() bool { return p.flow.step == StepEnterKey }

func (p *ProviderSetup) Step() KeyStep                    { return p.flow.step }
func (p *ProviderSetup) Cursor() int                      { return p.flow.cur.pos }
func (p *ProviderSetup) Providers() []config.ProviderInfo { return p.flow.providers }
func (p *ProviderSetup) Provider() string                 { return p.flow.provider }
func (p *ProviderSetup) MaskedKey() string                { return p.flow.masked() }
func (p *ProviderSetup) Err() string                      { return p.flow.err }
func (p *ProviderSetup) Succeeded() bool                  { return p.flow.ok }

// ProviderSaved delivers the result of the SaveProviderConfig command.
func (p *ProviderSetup) ProviderSaved(err error) { p.flow.saved(err) }

func (p *ProviderSetup) Handle(a action.Action) Result {
	cmd, out := p.flow.handle(a)
	if out != flowContinue {
		return closed()
	}
	return emit(cmd)
}
