package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geoform/internal/cascade"
	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
	"geoform/internal/form"
	"geoform/internal/secure"
	"geoform/internal/submit"
)

var (
	_ cascade.Fetcher   = (*Client)(nil)
	_ secure.KeyFetcher = (*Client)(nil)
	_ submit.Sink       = (*Client)(nil)
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://bad", ""} {
		if _, err := NewClient(raw); !appErrors.IsCode(err, appErrors.CodeConfigurationError) {
			t.Errorf("NewClient(%q) error = %v, want configuration error", raw, err)
		}
	}
}

func TestNewClientWithOptions(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	c, err := NewClient("http://localhost", WithHTTPClient(custom), WithUserAgent("test-agent"),
		WithEndpoints(Endpoints{States: "/v2/states"}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.httpClient != custom {
		t.Error("custom HTTP client not applied")
	}
	if c.userAgent != "test-agent" {
		t.Errorf("userAgent = %q", c.userAgent)
	}
	if c.endpoints.States != "/v2/states" {
		t.Errorf("States = %q, want override", c.endpoints.States)
	}
	if c.endpoints.Districts != "/api/districts" {
		t.Errorf("Districts = %q, want default kept", c.endpoints.Districts)
	}
}

func TestFetchStates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.URL.RawQuery != "" {
			t.Errorf("states request should carry no query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Kerala"},{"id":2,"name":"Goa"}]`))
	})

	opts, err := c.Fetch(context.Background(), domain.LevelState, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []domain.Option{{ID: "1", Label: "Kerala"}, {ID: "2", Label: "Goa"}}
	if len(opts) != len(want) {
		t.Fatalf("got %d options, want %d", len(opts), len(want))
	}
	for i := range want {
		if opts[i] != want[i] {
			t.Errorf("option %d = %+v, want %+v", i, opts[i], want[i])
		}
	}
}

func TestFetchChildLevelsSendParentParam(t *testing.T) {
	tests := []struct {
		level domain.Level
		path  string
		param string
	}{
		{domain.LevelDistrict, "/api/districts", "state_id"},
		{domain.LevelBlock, "/api/blocks", "district_id"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.path {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.path)
				}
				if got := r.URL.Query().Get(tt.param); got != "S 1" {
					t.Errorf("%s = %q, want %q", tt.param, got, "S 1")
				}
				_, _ = w.Write([]byte(`[]`))
			})
			opts, err := c.Fetch(context.Background(), tt.level, "S 1")
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if opts == nil || len(opts) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", opts)
			}
		})
	}
}

func TestFetchStatusErrorIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"state_id is required"}`))
	})
	_, err := c.Fetch(context.Background(), domain.LevelDistrict, "9")
	if !appErrors.IsCode(err, appErrors.CodeTransport) {
		t.Fatalf("err = %v, want transport", err)
	}
	if !strings.Contains(err.Error(), "state_id is required") {
		t.Errorf("error should include server detail, got %q", err.Error())
	}
}

func TestFetchMalformedBodyIsParse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	})
	_, err := c.Fetch(context.Background(), domain.LevelState, "")
	if !appErrors.IsCode(err, appErrors.CodeParse) {
		t.Fatalf("err = %v, want parse", err)
	}
}

func TestFetchRecordWithoutIDIsParse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Nowhere"}]`))
	})
	_, err := c.Fetch(context.Background(), domain.LevelState, "")
	if !appErrors.IsCode(err, appErrors.CodeParse) {
		t.Fatalf("err = %v, want parse", err)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, domain.LevelState, ""); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestFetchUnknownLevel(t *testing.T) {
	c, _ := NewClient("http://localhost")
	if _, err := c.Fetch(context.Background(), domain.Level(42), ""); !appErrors.IsCode(err, appErrors.CodeInvalidSelection) {
		t.Fatalf("err = %v, want invalid selection", err)
	}
}

func TestPublicKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/decrypt_keys" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"publicKey": "-----BEGIN PUBLIC KEY-----"})
	})
	key, err := c.PublicKey(context.Background())
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if key != "-----BEGIN PUBLIC KEY-----" {
		t.Errorf("key = %q", key)
	}
}

func TestPublicKeyMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := c.PublicKey(context.Background()); !appErrors.IsCode(err, appErrors.CodeKeyLoad) {
		t.Fatalf("err = %v, want key load", err)
	}
}

func TestSubmitSendsMultipart(t *testing.T) {
	var (
		gotMethod string
		gotID     string
		gotValues map[string]string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotID = r.Header.Get("X-Request-ID")
		if r.URL.Path != "/auth/register" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotValues = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotValues[k] = v[0]
		}
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Submit(context.Background(), submit.Request{
		ID:     "req-1",
		Form:   "register",
		Method: "post",
		Action: "/auth/register",
		Values: []form.Value{{Name: "username", Value: "asha"}, {Name: "password", Value: "Y2lwaGVy"}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotID != "req-1" {
		t.Errorf("X-Request-ID = %q", gotID)
	}
	if gotValues["username"] != "asha" || gotValues["password"] != "Y2lwaGVy" {
		t.Errorf("values = %v", gotValues)
	}
}

func TestSubmitFailureStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := c.Submit(context.Background(), submit.Request{Action: "/submit"})
	if !appErrors.IsCode(err, appErrors.CodeSubmission) {
		t.Fatalf("err = %v, want submission", err)
	}
}

func TestResolveKeepsAbsoluteAction(t *testing.T) {
	c, _ := NewClient("http://localhost:5000/base/")
	if got := c.resolve("https://other.example/submit", nil); got != "https://other.example/submit" {
		t.Errorf("resolve absolute = %q", got)
	}
	if got := c.resolve("submit", nil); got != "http://localhost:5000/base/submit" {
		t.Errorf("resolve relative = %q", got)
	}
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 42 * time.Second}
	c, err := NewClient("http://127.0.0.1:5000", WithHTTPClient(shared), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if shared.Timeout != 42*time.Second {
		t.Fatalf("shared client timeout changed to %s", shared.Timeout)
	}
	if c.httpClient == shared || c.httpClient.Timeout != time.Second {
		t.Fatalf("client timeout = %s, want 1s on a copy", c.httpClient.Timeout)
	}
}
