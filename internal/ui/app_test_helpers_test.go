package ui

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"geoform/internal/cascade"
	"geoform/internal/domain"
	"geoform/internal/secure"
	"geoform/internal/submit"
	"geoform/internal/ui/theme"
)

// fakeBackend serves canned options keyed by level and parent id.
type fakeBackend struct {
	mu      sync.Mutex
	options map[string][]domain.Option
	fail    map[string]error
	calls   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		options: map[string][]domain.Option{
			"state/":     {{ID: "1", Label: "Kerala"}, {ID: "2", Label: "Goa"}},
			"district/1": {{ID: "11", Label: "Idukki"}, {ID: "12", Label: "Ernakulam"}},
			"district/2": {{ID: "21", Label: "North Goa"}},
			"block/11":   {{ID: "111", Label: "Adimali"}},
			"block/21":   {},
		},
		fail: map[string]error{},
	}
}

func (b *fakeBackend) Fetch(_ context.Context, level domain.Level, parentID string) ([]domain.Option, error) {
	key := level.String() + "/" + parentID
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, key)
	if err, ok := b.fail[key]; ok {
		delete(b.fail, key)
		return nil, err
	}
	return append([]domain.Option(nil), b.options[key]...), nil
}

var (
	testKeyOnce sync.Once
	testPriv    *rsa.PrivateKey
	testPubPEM  string
)

func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 1024)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			panic(err)
		}
		testPriv = key
		testPubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	})
	return testPriv, testPubPEM
}

type recordingSink struct {
	mu       sync.Mutex
	requests []submit.Request
	err      error
	// hold, when set, blocks Submit until it is closed.
	hold chan struct{}
}

func (s *recordingSink) Submit(_ context.Context, req submit.Request) error {
	if s.hold != nil {
		<-s.hold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.err
}

type testEnv struct {
	app     *App
	backend *fakeBackend
	sink    *recordingSink
}

type envOption func(*Config)

func withKeyFetcher(f secure.KeyFetcher) envOption {
	return func(c *Config) { c.KeyFetcher = f }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	theme.SetTheme("dusk")
	toastDuration = time.Millisecond

	_, pub := testKeyPair(t)
	backend := newFakeBackend()
	sink := &recordingSink{}
	cfg := Config{
		Fetcher: backend,
		KeyFetcher: secure.KeyFetcherFunc(func(context.Context) (string, error) {
			return pub, nil
		}),
		Sink:      sink,
		HelpStyle: "plain",
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.Close)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &testEnv{app: app, backend: backend, sink: sink}
}

// runCmd executes cmd and returns its messages, flattening batches. Commands
// that do not finish promptly (timers) are dropped.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(200 * time.Millisecond):
		return nil
	}
	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, runCmd(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// pump feeds msg to the app and keeps feeding whatever its commands produce.
func (e *testEnv) pump(msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		switch next.(type) {
		case spinner.TickMsg, toastExpiredMsg, tea.QuitMsg:
			continue
		}
		_, cmd := e.app.Update(next)
		queue = append(queue, runCmd(cmd)...)
	}
}

func (e *testEnv) start() {
	for _, msg := range runCmd(e.app.Init()) {
		e.pump(msg)
	}
}

func (e *testEnv) press(keys ...tea.KeyMsg) {
	for _, k := range keys {
		e.pump(k)
	}
}

func (e *testEnv) typeText(s string) {
	e.pump(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (e *testEnv) focusField(t *testing.T, name string) {
	t.Helper()
	for i, item := range e.app.items {
		if item.name == name {
			e.app.focusItem(i)
			return
		}
	}
	t.Fatalf("no focus item %q", name)
}

// pick opens the selector for level and chooses the first match of query.
func (e *testEnv) pick(t *testing.T, level domain.Level, query string) {
	t.Helper()
	e.focusField(t, level.String())
	e.press(keyMsg(tea.KeyEnter))
	if e.app.picker == nil {
		t.Fatalf("%s picker did not open", level)
	}
	if query != "" {
		e.typeText(query)
	}
	e.press(keyMsg(tea.KeyEnter))
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

var _ cascade.Fetcher = (*fakeBackend)(nil)
