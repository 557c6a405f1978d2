package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"geoform/internal/api"
	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
	"geoform/internal/form"
	"geoform/internal/masters"
	"geoform/internal/secure"
	"geoform/internal/submit"
)

var (
	sharedKeysOnce sync.Once
	sharedKeys     *KeyPair
	sharedKeysErr  error
)

func testKeys(t *testing.T) *KeyPair {
	t.Helper()
	sharedKeysOnce.Do(func() {
		sharedKeys, sharedKeysErr = GenerateKeyPair(KeyBits)
	})
	if sharedKeysErr != nil {
		t.Fatalf("GenerateKeyPair: %v", sharedKeysErr)
	}
	return sharedKeys
}

type fakeMasters struct {
	districtsFor int64
	err          error
}

func (f *fakeMasters) States(context.Context) ([]domain.Option, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Option{{ID: "1", Label: "Kerala"}, {ID: "2", Label: "Goa"}}, nil
}

func (f *fakeMasters) Districts(_ context.Context, stateID int64) ([]domain.Option, error) {
	f.districtsFor = stateID
	return []domain.Option{{ID: "11", Label: "Idukki"}}, nil
}

func (f *fakeMasters) Blocks(context.Context, int64) ([]domain.Option, error) {
	return []domain.Option{}, nil
}

func newTestServer(t *testing.T, m Lister, logs io.Writer) *Server {
	t.Helper()
	if logs == nil {
		logs = io.Discard
	}
	s, err := New(Config{
		Masters:      m,
		Keys:         testKeys(t),
		SecretFields: []string{"password", "confirm_password"},
		Logger:       slog.New(slog.NewTextHandler(logs, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{Keys: testKeys(t)}); err == nil {
		t.Error("expected error without masters")
	}
	if _, err := New(Config{Masters: &fakeMasters{}}); err == nil {
		t.Error("expected error without keys")
	}
}

func TestStatesEndpoint(t *testing.T) {
	var logs bytes.Buffer
	s := newTestServer(t, &fakeMasters{}, &logs)

	req := httptest.NewRequest(http.MethodGet, "/api/states", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `[{"id":1,"name":"Kerala"},{"id":2,"name":"Goa"}]` {
		t.Fatalf("body = %s", got)
	}
	if !strings.Contains(logs.String(), "request_id=abc") {
		t.Errorf("request log missing id: %s", logs.String())
	}
}

func TestChildEndpointsRequireParent(t *testing.T) {
	s := newTestServer(t, &fakeMasters{}, nil)
	tests := []struct {
		target string
		status int
		errMsg string
	}{
		{"/api/districts", http.StatusBadRequest, "state_id is required"},
		{"/api/districts?state_id=abc", http.StatusBadRequest, "state_id is required"},
		{"/api/districts?state_id=0", http.StatusBadRequest, "state_id is required"},
		{"/api/blocks", http.StatusBadRequest, "district_id is required"},
		{"/api/districts?state_id=7", http.StatusOK, ""},
		{"/api/blocks?district_id=3", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.errMsg != "" && !strings.Contains(rec.Body.String(), tt.errMsg) {
				t.Fatalf("body = %s, want %q", rec.Body.String(), tt.errMsg)
			}
		})
	}
}

func TestDistrictsPassesStateID(t *testing.T) {
	m := &fakeMasters{}
	s := newTestServer(t, m, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/districts?state_id=42", nil))
	if m.districtsFor != 42 {
		t.Fatalf("districts queried for %d, want 42", m.districtsFor)
	}
}

func TestStoreErrorIs500(t *testing.T) {
	s := newTestServer(t, &fakeMasters{err: errors.New("disk gone")}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk gone") {
		t.Fatal("internal error detail leaked to client")
	}
}

func TestPublicKeyEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeMasters{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decrypt_keys", nil))

	var body struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := secure.ParsePublicKey(body.PublicKey); err != nil {
		t.Fatalf("served key does not parse: %v", err)
	}
}

func TestSubmitURLEncodedReportsFailures(t *testing.T) {
	s := newTestServer(t, &fakeMasters{}, nil)
	form := url.Values{"username": {"asha"}, "password": {"plaintext!"}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp SubmitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Failed) != 1 || resp.Failed[0] != "password" {
		t.Fatalf("failed = %v", resp.Failed)
	}
}

func TestSubmitRejectsGet(t *testing.T) {
	s := newTestServer(t, &fakeMasters{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

// TestRoundTrip drives the real client against the server backed by a seeded
// SQLite store.
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := masters.Open(ctx, filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("masters.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	for name, body := range map[string]string{
		masters.StatesFile:    "state_name,short_name,state_id\nKerala,KL,16\n",
		masters.DistrictsFile: "district_name,short_name,district_id,state_id\nIdukki,IDK,1601,16\n",
		masters.BlocksFile:    "block_name,short_name,block_id,district_id\nAdimali,ADM,160101,1601\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if _, err := store.Seed(ctx, dir, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	srv := httptest.NewServer(newTestServer(t, store, nil).Handler())
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	states, err := client.Fetch(ctx, domain.LevelState, "")
	if err != nil || len(states) != 1 {
		t.Fatalf("states = %v, err = %v", states, err)
	}
	districts, err := client.Fetch(ctx, domain.LevelDistrict, states[0].ID)
	if err != nil || len(districts) != 1 || districts[0].Label != "Idukki" {
		t.Fatalf("districts = %v, err = %v", districts, err)
	}
	blocks, err := client.Fetch(ctx, domain.LevelBlock, districts[0].ID)
	if err != nil || len(blocks) != 1 || blocks[0].Label != "Adimali" {
		t.Fatalf("blocks = %v, err = %v", blocks, err)
	}

	keys := secure.NewKeyProvider(client)
	keys.Initialize(ctx)
	if !keys.Loaded() {
		t.Fatalf("key not loaded: %v", keys.Err())
	}

	var captured error
	sink := submit.SinkFunc(func(ctx context.Context, req submit.Request) error {
		captured = client.Submit(ctx, req)
		return captured
	})
	guard := submit.NewGuard(keys, secure.NewFieldEncryptor(keys, secure.NewRSAEncrypter()), sink)
	f := form.New("register", "/submit", "POST",
		form.NewField("username", form.FieldText, "Username", "asha"),
		form.NewField("password", form.FieldPassword, "Password", "s3cret"),
		form.NewField("confirm_password", form.FieldPassword, "Confirm", "s3cret"),
	)
	res := guard.Attach(f).Submit(ctx)
	if res.Outcome != submit.OutcomeSubmitted {
		t.Fatalf("outcome = %v, err = %v", res.Outcome, res.Err)
	}
	if res.Encrypted != 2 {
		t.Fatalf("encrypted = %d, want 2", res.Encrypted)
	}
}

func TestRoundTripWrongKeyFails(t *testing.T) {
	other, err := GenerateKeyPair(1024)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	srv := httptest.NewServer(newTestServer(t, &fakeMasters{}, nil).Handler())
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ct, err := secure.NewRSAEncrypter().Encrypt("s3cret", other.PublicPEM())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	err = client.Submit(context.Background(), submit.Request{
		Action: "/submit",
		Values: []form.Value{{Name: "password", Value: ct}},
	})
	if !appErrors.IsCode(err, appErrors.CodeSubmission) {
		t.Fatalf("err = %v, want submission failure", err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := newTestServer(t, &fakeMasters{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
