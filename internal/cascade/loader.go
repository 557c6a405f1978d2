// Package cascade loads the state → district → block selectors. Each dependent
// level owns a Coordinator so that only the most recently triggered request may
// change what the level shows, whatever order responses arrive in.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"geoform/internal/debug"
	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
	"geoform/internal/selector"
)

// Fetcher retrieves the options of level scoped by parentID. parentID is empty
// for the root level.
type Fetcher interface {
	Fetch(ctx context.Context, level domain.Level, parentID string) ([]domain.Option, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, level domain.Level, parentID string) ([]domain.Option, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, level domain.Level, parentID string) ([]domain.Option, error) {
	return f(ctx, level, parentID)
}

// OutcomeKind describes what applying a result did to its level.
type OutcomeKind int

const (
	// OutcomeCancelled means the result was superseded and discarded.
	OutcomeCancelled OutcomeKind = iota
	OutcomePopulated
	OutcomeEmpty
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePopulated:
		return "populated"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Outcome reports the effect of one applied result.
type Outcome struct {
	Level   domain.Level
	Kind    OutcomeKind
	Options int
	Err     error
}

// Result is what a Task produced. It carries the token it was issued under.
type Result struct {
	Level    domain.Level
	ParentID string
	Options  []domain.Option
	Err      error

	token Token
}

// Task is one issued fetch. Run performs the network call; the caller hands
// the Result back to Loader.Apply.
type Task struct {
	level    domain.Level
	parentID string
	token    Token
	ctx      context.Context
	fetcher  Fetcher
	timeout  time.Duration
}

// Level returns the level the task loads.
func (t *Task) Level() domain.Level { return t.level }

// ParentID returns the id the task is scoped by.
func (t *Task) ParentID() string { return t.parentID }

// Run fetches the options. It never touches selector state.
func (t *Task) Run() Result {
	ctx := t.ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	opts, err := t.fetcher.Fetch(ctx, t.level, t.parentID)
	if err != nil {
		err = t.classify(ctx, err)
		opts = nil
	}
	return Result{
		Level:    t.level,
		ParentID: t.parentID,
		Options:  opts,
		Err:      err,
		token:    t.token,
	}
}

func (t *Task) classify(ctx context.Context, err error) error {
	if t.ctx.Err() != nil {
		return appErrors.New(appErrors.CodeCancelled, fmt.Sprintf("%s request superseded", t.level), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return appErrors.New(appErrors.CodeTransport, fmt.Sprintf("%s request timed out", t.level), err)
	}
	if appErrors.CodeOf(err) != appErrors.CodeUnknown {
		return err
	}
	return appErrors.New(appErrors.CodeTransport, fmt.Sprintf("fetch %s", t.level.Plural()), err)
}

type slot struct {
	view     *selector.Selector
	coord    *Coordinator
	parentID string
}

// Loader owns one selector and one Coordinator per level. It is safe for
// concurrent use.
type Loader struct {
	mu      sync.Mutex
	fetcher Fetcher
	timeout time.Duration
	slots   map[domain.Level]*slot
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout bounds every fetch. Zero disables the bound.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// NewLoader builds a loader with every level reset to its default placeholder.
func NewLoader(fetcher Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: fetcher,
		slots:   make(map[domain.Level]*slot, len(domain.Levels)),
	}
	for _, level := range domain.Levels {
		l.slots[level] = &slot{
			view:  selector.New(level.String(), level.Placeholder()),
			coord: NewCoordinator(),
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start triggers the root level.
func (l *Loader) Start(ctx context.Context) *Task {
	task, _ := l.Trigger(ctx, domain.LevelState, "")
	return task
}

// Trigger supersedes any pending request for level, shows its loading
// placeholder, resets every descendant and issues a new task. All of this
// happens before the returned task is run.
func (l *Loader) Trigger(ctx context.Context, level domain.Level, parentID string) (*Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.triggerLocked(ctx, level, parentID)
}

func (l *Loader) triggerLocked(ctx context.Context, level domain.Level, parentID string) (*Task, error) {
	s, ok := l.slots[level]
	if !ok {
		return nil, appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("unknown level %s", level), nil)
	}
	parentID = strings.TrimSpace(parentID)
	if level != domain.LevelState && parentID == "" {
		return nil, appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("%s requires a parent id", level), nil)
	}

	token, taskCtx := s.coord.Issue(ctx)
	s.view.MarkLoading(level.LoadingPlaceholder())
	s.parentID = parentID
	l.resetDescendantsLocked(level)

	debug.Logf("cascade: %s load issued (parent=%q)", level, parentID)
	return &Task{
		level:    level,
		parentID: parentID,
		token:    token,
		ctx:      taskCtx,
		fetcher:  l.fetcher,
		timeout:  l.timeout,
	}, nil
}

func (l *Loader) resetDescendantsLocked(level domain.Level) {
	for _, d := range level.Descendants() {
		ds := l.slots[d]
		ds.coord.Invalidate()
		ds.view.Reset(d.Placeholder(), true)
		ds.parentID = ""
	}
}

// Apply writes r to its level if, and only if, r's token is still live.
func (l *Loader) Apply(r Result) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := Outcome{Level: r.Level, Kind: OutcomeCancelled, Err: r.Err}
	s, ok := l.slots[r.Level]
	if !ok || !s.coord.Live(r.token) {
		debug.Logf("cascade: discarded superseded %s result (parent=%q)", r.Level, r.ParentID)
		return out
	}
	if appErrors.IsCancelled(r.Err) {
		return out
	}
	defer s.coord.Release(r.token)

	switch {
	case r.Err != nil:
		s.view.Fail(r.Level.FailureMessage())
		debug.Errorf("cascade: %s load failed (parent=%q): %v", r.Level, r.ParentID, r.Err)
		out.Kind = OutcomeFailed
	case len(r.Options) == 0:
		s.view.Fail(r.Level.EmptyMessage())
		debug.Logf("cascade: %s load returned no options (parent=%q)", r.Level, r.ParentID)
		out.Kind = OutcomeEmpty
		out.Err = appErrors.New(appErrors.CodeEmptyResult, r.Level.EmptyMessage(), nil)
	default:
		if err := s.view.Populate(r.Options, r.Level.Placeholder()); err != nil {
			s.view.Fail(r.Level.FailureMessage())
			out.Kind = OutcomeFailed
			out.Err = err
			return out
		}
		out.Kind = OutcomePopulated
		out.Options = len(r.Options)
	}
	return out
}

// Load triggers level, runs the fetch and applies the result.
func (l *Loader) Load(ctx context.Context, level domain.Level, parentID string) Outcome {
	task, err := l.Trigger(ctx, level, parentID)
	if err != nil {
		return Outcome{Level: level, Kind: OutcomeFailed, Err: err}
	}
	return l.Apply(task.Run())
}

// Select records id as the choice at level and triggers the child level. An
// empty id (the placeholder) clears every descendant and returns no task; so
// does a selection at the last level.
func (l *Loader) Select(ctx context.Context, level domain.Level, id string) (*Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[level]
	if !ok {
		return nil, appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("unknown level %s", level), nil)
	}
	if err := s.view.Select(id); err != nil {
		return nil, err
	}
	child, ok := level.Child()
	if !ok {
		return nil, nil
	}
	if strings.TrimSpace(id) == "" {
		l.resetDescendantsLocked(level)
		return nil, nil
	}
	return l.triggerLocked(ctx, child, id)
}

// State returns a snapshot of level's selector.
func (l *Loader) State(level domain.Level) selector.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[level]; ok {
		return s.view.State()
	}
	return selector.State{}
}

// Selected returns the option chosen at level.
func (l *Loader) Selected(level domain.Level) (domain.Option, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[level]; ok {
		return s.view.Selected()
	}
	return domain.Option{}, false
}

// Values returns the submitted value of every level keyed by level name.
func (l *Loader) Values() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.slots))
	for level, s := range l.slots {
		out[level.String()] = s.view.Value()
	}
	return out
}
