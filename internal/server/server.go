// Package server is the development backend for geoform: it serves the
// master lists and the public key, and accepts form submissions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"geoform/internal/domain"
)

// Lister is satisfied by *masters.Store.
type Lister interface {
	States(ctx context.Context) ([]domain.Option, error)
	Districts(ctx context.Context, stateID int64) ([]domain.Option, error)
	Blocks(ctx context.Context, districtID int64) ([]domain.Option, error)
}

// Config configures a Server.
type Config struct {
	Masters      Lister
	Keys         *KeyPair
	SecretFields []string
	Logger       *slog.Logger
}

// Server handles the backend HTTP API.
type Server struct {
	masters Lister
	keys    *KeyPair
	secret  map[string]struct{}
	log     *slog.Logger
	mux     *http.ServeMux
}

const maxSubmitBytes = 1 << 20

// New builds a Server. Masters and Keys are required.
func New(cfg Config) (*Server, error) {
	if cfg.Masters == nil {
		return nil, errors.New("server: masters store is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("server: key pair is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		masters: cfg.Masters,
		keys:    cfg.Keys,
		secret:  make(map[string]struct{}, len(cfg.SecretFields)),
		log:     logger,
		mux:     http.NewServeMux(),
	}
	for _, name := range cfg.SecretFields {
		if name = strings.TrimSpace(name); name != "" {
			s.secret[name] = struct{}{}
		}
	}

	s.mux.HandleFunc("GET /api/states", s.handleStates)
	s.mux.HandleFunc("GET /api/districts", s.handleDistricts)
	s.mux.HandleFunc("GET /api/blocks", s.handleBlocks)
	s.mux.HandleFunc("GET /api/decrypt_keys", s.handlePublicKey)
	s.mux.HandleFunc("POST /submit", s.handleSubmit)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s, nil
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		}
		if id := r.Header.Get("X-Request-ID"); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		s.log.Info("request", attrs...)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	opts, err := s.masters.States(r.Context())
	s.writeOptions(w, opts, err)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	stateID, ok := positiveParam(r, "state_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "state_id is required")
		return
	}
	opts, err := s.masters.Districts(r.Context(), stateID)
	s.writeOptions(w, opts, err)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	districtID, ok := positiveParam(r, "district_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "district_id is required")
		return
	}
	opts, err := s.masters.Blocks(r.Context(), districtID)
	s.writeOptions(w, opts, err)
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": s.keys.PublicPEM()})
}

// SubmitResponse reports which secret fields arrived and decrypted. Plaintext
// is never echoed.
type SubmitResponse struct {
	RequestID string   `json:"requestId,omitempty"`
	Fields    []string `json:"fields"`
	Decrypted []string `json:"decrypted"`
	Failed    []string `json:"failed"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	if err := r.ParseMultipartForm(maxSubmitBytes); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "malformed form body")
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "malformed form body")
			return
		}
	}

	resp := SubmitResponse{
		RequestID: r.Header.Get("X-Request-ID"),
		Fields:    []string{},
		Decrypted: []string{},
		Failed:    []string{},
	}
	for name := range r.PostForm {
		resp.Fields = append(resp.Fields, name)
	}
	sort.Strings(resp.Fields)

	for _, name := range resp.Fields {
		if _, secret := s.secret[name]; !secret {
			continue
		}
		if _, err := s.keys.Decrypt(r.PostForm.Get(name)); err != nil {
			s.log.Warn("secret field did not decrypt", "field", name, "request_id", resp.RequestID, "error", err)
			resp.Failed = append(resp.Failed, name)
			continue
		}
		resp.Decrypted = append(resp.Decrypted, name)
	}

	status := http.StatusOK
	if len(resp.Failed) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeOptions(w http.ResponseWriter, opts []domain.Option, err error) {
	if err != nil {
		s.log.Error("query masters", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	records := make([]record, 0, len(opts))
	for _, o := range opts {
		id, convErr := strconv.ParseInt(o.ID, 10, 64)
		if convErr != nil {
			records = append(records, record{ID: o.ID, Name: o.Label})
			continue
		}
		records = append(records, record{ID: id, Name: o.Label})
	}
	writeJSON(w, http.StatusOK, records)
}

// record mirrors the {id, name} wire shape; ids are numeric when possible.
type record struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

func positiveParam(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(name)), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
