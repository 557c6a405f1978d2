// Package submit gates form submission on the public key being loaded,
// encrypts password fields, and hands the collected values to a Sink.
package submit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"geoform/internal/debug"
	appErrors "geoform/internal/errors"
	"geoform/internal/form"
	"geoform/internal/secure"
)

// Request is one outgoing submission.
type Request struct {
	ID     string
	Form   string
	Method string
	Action string
	Values []form.Value
}

// Sink performs the network submission.
type Sink interface {
	Submit(ctx context.Context, req Request) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, req Request) error

// Submit implements Sink.
func (f SinkFunc) Submit(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Encryptor is satisfied by *secure.FieldEncryptor.
type Encryptor interface {
	EncryptAll(f *form.Form) (int, error)
}

// Outcome says how far a submit attempt got.
type Outcome int

const (
	OutcomeSubmitted Outcome = iota
	OutcomeKeyNotLoaded
	OutcomeEncryptionFailed
	OutcomeSubmitFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeKeyNotLoaded:
		return "key not loaded"
	case OutcomeEncryptionFailed:
		return "encryption failed"
	default:
		return "submit failed"
	}
}

// Result reports one submit attempt. Err is nil only for OutcomeSubmitted.
type Result struct {
	Outcome   Outcome
	RequestID string
	Encrypted int
	Err       error
}

// Interceptor owns the submit path of a single form.
type Interceptor struct {
	form      *form.Form
	keys      secure.KeySource
	encryptor Encryptor
	sink      Sink
	newID     func() string
}

// Form returns the intercepted form.
func (i *Interceptor) Form() *form.Form {
	return i.form
}

// Prepared is a submission that passed the key gate and encryption. Its
// Request is a snapshot; later form edits do not change it.
type Prepared struct {
	Request   Request
	Encrypted int
}

// Submit runs one attempt. It never retries and never queues: when the key is
// not loaded nothing is sent and no field changes.
func (i *Interceptor) Submit(ctx context.Context) Result {
	p, res, ok := i.Prepare()
	if !ok {
		return res
	}
	return i.Send(ctx, p)
}

// Prepare checks the key, encrypts the password fields and snapshots the
// request. It touches the form and must run on the goroutine that owns it.
// When ok is false the attempt is over and res says why.
func (i *Interceptor) Prepare() (p Prepared, res Result, ok bool) {
	name := i.form.Name
	if !i.keys.State().Loaded {
		debug.Warnf("submit: %s blocked, encryption key not loaded", name)
		return Prepared{}, Result{
			Outcome: OutcomeKeyNotLoaded,
			Err:     appErrors.New(appErrors.CodeKeyUnavailable, "encryption key not loaded", nil),
		}, false
	}

	n, err := i.encryptor.EncryptAll(i.form)
	if err != nil {
		debug.Errorf("submit: %s not sent, encryption failed after %d field(s): %v", name, n, err)
		return Prepared{}, Result{Outcome: OutcomeEncryptionFailed, Encrypted: n, Err: err}, false
	}

	return Prepared{
		Request: Request{
			ID:     i.newID(),
			Form:   name,
			Method: i.form.Method(),
			Action: i.form.Action,
			Values: i.form.Values(),
		},
		Encrypted: n,
	}, Result{}, true
}

// Send hands a prepared request to the sink. It does not read the form, so it
// may run on any goroutine.
func (i *Interceptor) Send(ctx context.Context, p Prepared) Result {
	req := p.Request
	if err := i.sink.Submit(ctx, req); err != nil {
		if appErrors.CodeOf(err) == appErrors.CodeUnknown {
			err = appErrors.New(appErrors.CodeSubmission, fmt.Sprintf("submit %s", req.Form), err)
		}
		debug.Errorf("submit: %s request %s failed: %v", req.Form, req.ID, err)
		return Result{Outcome: OutcomeSubmitFailed, RequestID: req.ID, Encrypted: p.Encrypted, Err: err}
	}
	debug.Logf("submit: %s request %s sent (%s %s)", req.Form, req.ID, req.Method, req.Action)
	return Result{Outcome: OutcomeSubmitted, RequestID: req.ID, Encrypted: p.Encrypted}
}

// Guard attaches interceptors to forms. Each form gets exactly one.
type Guard struct {
	keys      secure.KeySource
	encryptor Encryptor
	sink      Sink
	newID     func() string

	mu       sync.Mutex
	attached map[*form.Form]*Interceptor
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(next func() string) GuardOption {
	return func(g *Guard) {
		if next != nil {
			g.newID = next
		}
	}
}

// NewGuard builds a guard sharing one key source, encryptor and sink.
func NewGuard(keys secure.KeySource, encryptor Encryptor, sink Sink, opts ...GuardOption) *Guard {
	g := &Guard{
		keys:      keys,
		encryptor: encryptor,
		sink:      sink,
		newID:     uuid.NewString,
		attached:  make(map[*form.Form]*Interceptor),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach returns the interceptor of f, creating it on first use.
func (g *Guard) Attach(f *form.Form) *Interceptor {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i, ok := g.attached[f]; ok {
		return i
	}
	i := &Interceptor{
		form:      f,
		keys:      g.keys,
		encryptor: g.encryptor,
		sink:      g.sink,
		newID:     g.newID,
	}
	g.attached[f] = i
	return i
}

// AttachAll attaches every form and returns the interceptors in input order.
func (g *Guard) AttachAll(forms ...*form.Form) []*Interceptor {
	out := make([]*Interceptor, 0, len(forms))
	for _, f := range forms {
		out = append(out, g.Attach(f))
	}
	return out
}
