package submit

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"geoform/internal/debug"
	appErrors "geoform/internal/errors"
	"geoform/internal/form"
	"geoform/internal/secure"
)

type fakeKeys secure.KeyState

func (k fakeKeys) State() secure.KeyState { return secure.KeyState(k) }

type recordingSink struct {
	requests []Request
	err      error
}

func (s *recordingSink) Submit(ctx context.Context, req Request) error {
	s.requests = append(s.requests, req)
	return s.err
}

func prefixEncrypter() secure.Encrypter {
	return secure.EncrypterFunc(func(plaintext, key string) (string, error) {
		return "enc(" + plaintext + ")", nil
	})
}

func registration() *form.Form {
	return form.New("register", "/auth/register", "",
		form.NewField("username", form.FieldText, "Username", "asha"),
		form.NewField("password", form.FieldPassword, "Password", "secret123"),
		form.NewField("state", form.FieldSelect, "State", "1"),
	)
}

func fixedID() GuardOption {
	return WithRequestIDs(func() string { return "req-1" })
}

func TestSubmitEncryptsThenSends(t *testing.T) {
	keys := fakeKeys{PublicKey: "pem", Loaded: true}
	sink := &recordingSink{}
	g := NewGuard(keys, secure.NewFieldEncryptor(keys, prefixEncrypter()), sink, fixedID())
	f := registration()

	res := g.Attach(f).Submit(context.Background())
	if res.Outcome != OutcomeSubmitted || res.Err != nil || res.Encrypted != 1 {
		t.Fatalf("unexpected result %#v", res)
	}
	if len(sink.requests) != 1 {
		t.Fatalf("expected one submission, got %d", len(sink.requests))
	}
	want := Request{
		ID:     "req-1",
		Form:   "register",
		Method: "POST",
		Action: "/auth/register",
		Values: []form.Value{
			{Name: "username", Value: "asha"},
			{Name: "password", Value: "enc(secret123)"},
			{Name: "state", Value: "1"},
		},
	}
	if !reflect.DeepEqual(sink.requests[0], want) {
		t.Fatalf("request = %#v\nwant %#v", sink.requests[0], want)
	}
}

func TestSubmitWithoutKeySendsNothing(t *testing.T) {
	var buf strings.Builder
	restore := debug.SetOutput(&buf)
	t.Cleanup(restore)

	provider := secure.NewKeyProvider(secure.KeyFetcherFunc(func(ctx context.Context) (string, error) {
		return "", errors.New("network unreachable")
	}))
	provider.Initialize(context.Background())

	sink := &recordingSink{}
	g := NewGuard(provider, secure.NewFieldEncryptor(provider, prefixEncrypter()), sink)
	forms := []*form.Form{registration(), registration()}

	for _, i := range g.AttachAll(forms...) {
		before := i.Form().Snapshot()
		res := i.Submit(context.Background())
		if res.Outcome != OutcomeKeyNotLoaded || !appErrors.IsCode(res.Err, appErrors.CodeKeyUnavailable) {
			t.Fatalf("unexpected result %#v", res)
		}
		if !reflect.DeepEqual(i.Form().Snapshot(), before) {
			t.Fatal("blocked submission must not mutate any field")
		}
	}
	if len(sink.requests) != 0 {
		t.Fatalf("expected zero submissions, got %d", len(sink.requests))
	}
	if strings.Count(buf.String(), "WARN submit: register blocked") != 2 {
		t.Fatalf("expected one warning per attempt, log was %q", buf.String())
	}
}

func TestSubmitEncryptionFaultStops(t *testing.T) {
	keys := fakeKeys{PublicKey: "pem", Loaded: true}
	sink := &recordingSink{}
	failing := secure.EncrypterFunc(func(p, k string) (string, error) {
		return "", appErrors.New(appErrors.CodeEncryption, "bad key", nil)
	})
	g := NewGuard(keys, secure.NewFieldEncryptor(keys, failing), sink)

	res := g.Attach(registration()).Submit(context.Background())
	if res.Outcome != OutcomeEncryptionFailed || !appErrors.IsCode(res.Err, appErrors.CodeEncryption) {
		t.Fatalf("unexpected result %#v", res)
	}
	if len(sink.requests) != 0 {
		t.Fatal("nothing may be sent after an encryption fault")
	}
}

func TestSubmitSinkFailureIsReported(t *testing.T) {
	keys := fakeKeys{PublicKey: "pem", Loaded: true}
	sink := &recordingSink{err: errors.New("status 500")}
	g := NewGuard(keys, secure.NewFieldEncryptor(keys, prefixEncrypter()), sink, fixedID())
	f := registration()
	i := g.Attach(f)

	res := i.Submit(context.Background())
	if res.Outcome != OutcomeSubmitFailed || !appErrors.IsCode(res.Err, appErrors.CodeSubmission) || res.RequestID != "req-1" {
		t.Fatalf("unexpected result %#v", res)
	}
	if len(sink.requests) != 1 {
		t.Fatalf("a failed submission is not retried, got %d calls", len(sink.requests))
	}

	// A second attempt re-sends the already encrypted value without re-encrypting it.
	sink.err = nil
	res = i.Submit(context.Background())
	if res.Outcome != OutcomeSubmitted || res.Encrypted != 0 {
		t.Fatalf("unexpected second result %#v", res)
	}
	if got := sink.requests[1].Values[1].Value; got != "enc(secret123)" {
		t.Fatalf("password re-encrypted: %q", got)
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	g := NewGuard(fakeKeys{}, nil, &recordingSink{})
	f := registration()
	if g.Attach(f) != g.Attach(f) {
		t.Fatal("attaching the same form twice should return the same interceptor")
	}
	if g.Attach(f) == g.Attach(registration()) {
		t.Fatal("distinct forms need distinct interceptors")
	}
}

func TestPrepareEncryptsWithoutSending(t *testing.T) {
	keys := fakeKeys{PublicKey: "pem", Loaded: true}
	sink := &recordingSink{}
	f := registration()
	in := NewGuard(keys, secure.NewFieldEncryptor(keys, prefixEncrypter()), sink, fixedID()).Attach(f)

	p, _, ok := in.Prepare()
	if !ok {
		t.Fatal("Prepare should succeed with a loaded key")
	}
	if len(sink.requests) != 0 {
		t.Fatal("Prepare must not reach the sink")
	}
	if field, _ := f.Field("password"); !field.Encrypted() {
		t.Fatal("Prepare should encrypt the password field")
	}

	// Edits after Prepare do not leak into the request already built.
	field, _ := f.Field("username")
	field.SetValue("changed")

	res := in.Send(context.Background(), p)
	if res.Outcome != OutcomeSubmitted || res.RequestID != "req-1" || res.Encrypted != 1 {
		t.Fatalf("unexpected result %#v", res)
	}
	if got := sink.requests[0].Values[0]; got.Value != "asha" {
		t.Fatalf("username sent as %q, want the prepared snapshot", got.Value)
	}
}

func TestPrepareWithoutKeyStops(t *testing.T) {
	keys := fakeKeys{}
	sink := &recordingSink{}
	f := registration()
	in := NewGuard(keys, secure.NewFieldEncryptor(keys, prefixEncrypter()), sink).Attach(f)

	_, res, ok := in.Prepare()
	if ok || res.Outcome != OutcomeKeyNotLoaded || !appErrors.IsCode(res.Err, appErrors.CodeKeyUnavailable) {
		t.Fatalf("Prepare = %#v, %v", res, ok)
	}
	if field, _ := f.Field("password"); field.Encrypted() || field.Value() != "secret123" {
		t.Fatal("password must be untouched")
	}
}
