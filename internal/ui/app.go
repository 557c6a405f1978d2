package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"geoform/internal/cascade"
	"geoform/internal/domain"
	"geoform/internal/form"
	"geoform/internal/secure"
	"geoform/internal/submit"
)

const (
	formName          = "register"
	defaultFormAction = "/submit"
	activityRows      = 4
)

// Swapped out in tests.
var (
	writeClipboard = clipboard.WriteAll
	toastDuration  = 4 * time.Second
)

// Config configures the UI application.
type Config struct {
	Fetcher    cascade.Fetcher
	KeyFetcher secure.KeyFetcher
	Sink       submit.Sink
	Encrypter  secure.Encrypter

	FormAction     string
	FormMethod     string
	RequestTimeout time.Duration
	HelpStyle      string
	Version        string
}

type itemKind int

const (
	itemInput itemKind = iota
	itemSelect
	itemButton
)

// focusItem is one stop in the tab order.
type focusItem struct {
	kind  itemKind
	name  string
	level domain.Level
	input *textinput.Model
	prev  string
}

// App implements the Bubble Tea model for the registration form.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	loader      *cascade.Loader
	keys        *secure.KeyProvider
	form        *form.Form
	interceptor *submit.Interceptor

	items []*focusItem
	focus int

	picker   *picker
	showHelp bool
	spinner  spinner.Model
	activity *activityLog
	styles   styles

	submitting bool
	lastSubmit *submit.Result

	toast    string
	toastErr bool
	toastSeq int

	helpStyle string
	version   string
	width     int
	height    int
}

// NewApp wires the loader, key provider and submit guard around a new form.
func NewApp(cfg Config) (*App, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("ui: fetcher is required")
	}
	if cfg.KeyFetcher == nil {
		return nil, errors.New("ui: key fetcher is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("ui: submit sink is required")
	}
	enc := cfg.Encrypter
	if enc == nil {
		enc = secure.NewRSAEncrypter()
	}
	action := strings.TrimSpace(cfg.FormAction)
	if action == "" {
		action = defaultFormAction
	}

	ctx, cancel := context.WithCancel(context.Background())
	keys := secure.NewKeyProvider(cfg.KeyFetcher)
	f := newRegistrationForm(action, cfg.FormMethod)
	guard := submit.NewGuard(keys, secure.NewFieldEncryptor(keys, enc), cfg.Sink)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := &App{
		ctx:         ctx,
		cancel:      cancel,
		loader:      cascade.NewLoader(cfg.Fetcher, cascade.WithTimeout(cfg.RequestTimeout)),
		keys:        keys,
		form:        f,
		interceptor: guard.Attach(f),
		spinner:     sp,
		activity:    newActivityLog(50),
		styles:      newStyles(),
		helpStyle:   cfg.HelpStyle,
		version:     cfg.Version,
		width:       80,
		height:      24,
	}
	m.items = m.buildItems()
	m.focusItem(0)
	return m, nil
}

func newRegistrationForm(action, method string) *form.Form {
	return form.New(formName, action, method,
		form.NewField("username", form.FieldText, "Username", ""),
		form.NewField("email", form.FieldEmail, "Email", ""),
		form.NewField("password", form.FieldPassword, "Password", ""),
		form.NewField("confirm_password", form.FieldPassword, "Confirm password", ""),
		form.NewField(domain.LevelState.String(), form.FieldSelect, domain.LevelState.Title(), ""),
		form.NewField(domain.LevelDistrict.String(), form.FieldSelect, domain.LevelDistrict.Title(), ""),
		form.NewField(domain.LevelBlock.String(), form.FieldSelect, domain.LevelBlock.Title(), ""),
	)
}

func (m *App) buildItems() []*focusItem {
	var items []*focusItem
	for _, field := range m.form.Fields() {
		switch field.Type {
		case form.FieldSelect:
			level, err := domain.ParseLevel(field.Name)
			if err != nil {
				continue
			}
			items = append(items, &focusItem{kind: itemSelect, name: field.Name, level: level})
		case form.FieldHidden:
			continue
		default:
			ti := textinput.New()
			ti.Prompt = ""
			ti.Placeholder = field.Label
			ti.CharLimit = 128
			if field.IsPassword() {
				ti.EchoMode = textinput.EchoPassword
				ti.EchoCharacter = '•'
			}
			items = append(items, &focusItem{kind: itemInput, name: field.Name, input: &ti})
		}
	}
	return append(items, &focusItem{kind: itemButton, name: "submit"})
}

// Init starts the state load, the key fetch and the spinner.
func (m *App) Init() tea.Cmd {
	task := m.loader.Start(m.ctx)
	m.activity.add(activityInfo, "loading %s", domain.LevelState.Plural())
	return tea.Batch(
		runTaskCmd(task),
		loadKeyCmd(m.ctx, m.keys),
		m.spinner.Tick,
	)
}

// Form returns the underlying form model.
func (m *App) Form() *form.Form {
	return m.form
}

// Loader returns the cascading loader.
func (m *App) Loader() *cascade.Loader {
	return m.loader
}

// Close cancels every in-flight request.
func (m *App) Close() {
	m.cancel()
}

func (m *App) focused() *focusItem {
	if m.focus < 0 || m.focus >= len(m.items) {
		return nil
	}
	return m.items[m.focus]
}

func (m *App) focusItem(idx int) {
	if len(m.items) == 0 {
		return
	}
	idx = (idx%len(m.items) + len(m.items)) % len(m.items)
	if cur := m.focused(); cur != nil && cur.input != nil {
		cur.input.Blur()
	}
	m.focus = idx
	if cur := m.focused(); cur != nil && cur.input != nil {
		cur.input.Focus()
	}
}

// syncSelections copies every selector's chosen id into the form.
func (m *App) syncSelections() {
	values := m.loader.Values()
	for _, level := range domain.Levels {
		if field, ok := m.form.Field(level.String()); ok && field.Value() != values[level.String()] {
			field.SetValue(values[level.String()])
		}
	}
}

// selectedIDs formats the chosen location ids for the clipboard.
func (m *App) selectedIDs() string {
	var parts []string
	for _, level := range domain.Levels {
		if opt, ok := m.loader.Selected(level); ok {
			parts = append(parts, level.String()+"="+opt.ID)
		}
	}
	return strings.Join(parts, " ")
}

func (m *App) showToast(msg string, isErr bool) tea.Cmd {
	m.toastSeq++
	m.toast = msg
	m.toastErr = isErr
	return scheduleToastExpiry(m.toastSeq, toastDuration)
}
