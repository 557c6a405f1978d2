package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
	"geoform/internal/submit"
)

// DefaultTimeout bounds requests made with the default HTTP client.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 512

// Endpoints holds the backend paths, relative to the base URL.
type Endpoints struct {
	States        string
	Districts     string
	Blocks        string
	PublicKey     string
	DistrictParam string
	BlockParam    string
}

// DefaultEndpoints matches the reference backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		States:        "/api/states",
		Districts:     "/api/districts",
		Blocks:        "/api/blocks",
		PublicKey:     "/api/decrypt_keys",
		DistrictParam: "state_id",
		BlockParam:    "district_id",
	}
}

// Client is an HTTP client for the backend.
type Client struct {
	baseURL    *url.URL
	endpoints  Endpoints
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout. It works on a copy, so a client
// passed to WithHTTPClient keeps its own timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		copied := *c.httpClient
		copied.Timeout = timeout
		c.httpClient = &copied
	}
}

// WithEndpoints overrides the non-empty paths in e.
func WithEndpoints(e Endpoints) ClientOption {
	return func(c *Client) {
		def := &c.endpoints
		for _, pair := range []struct {
			dst *string
			src string
		}{
			{&def.States, e.States},
			{&def.Districts, e.Districts},
			{&def.Blocks, e.Blocks},
			{&def.PublicKey, e.PublicKey},
			{&def.DistrictParam, e.DistrictParam},
			{&def.BlockParam, e.BlockParam},
		} {
			if strings.TrimSpace(pair.src) != "" {
				*pair.dst = strings.TrimSpace(pair.src)
			}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("invalid server url %q", baseURL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("server url %q must be http or https", baseURL), nil)
	}
	c := &Client{
		baseURL:    u,
		endpoints:  DefaultEndpoints(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "geoform-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the options of level. It implements cascade.Fetcher.
func (c *Client) Fetch(ctx context.Context, level domain.Level, parentID string) ([]domain.Option, error) {
	var (
		path  string
		query url.Values
	)
	switch level {
	case domain.LevelState:
		path = c.endpoints.States
	case domain.LevelDistrict:
		path = c.endpoints.Districts
		query = url.Values{c.endpoints.DistrictParam: {parentID}}
	case domain.LevelBlock:
		path = c.endpoints.Blocks
		query = url.Values{c.endpoints.BlockParam: {parentID}}
	default:
		return nil, appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("unknown level %s", level), nil)
	}

	var out []domain.Option
	if err := c.getJSON(ctx, path, query, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Option{}
	}
	return out, nil
}

type keyResponse struct {
	PublicKey string `json:"publicKey"`
}

// PublicKey fetches the encryption key. It implements secure.KeyFetcher.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var resp keyResponse
	if err := c.getJSON(ctx, c.endpoints.PublicKey, nil, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.PublicKey) == "" {
		return "", appErrors.New(appErrors.CodeKeyLoad, "public key missing in response", nil)
	}
	return resp.PublicKey, nil
}

// Submit sends the form values as multipart/form-data. It implements
// submit.Sink.
func (c *Client) Submit(ctx context.Context, req submit.Request) error {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return appErrors.New(appErrors.CodeSubmission, "encode form", err)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	target := c.resolve(req.Action, nil)

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return appErrors.New(appErrors.CodeSubmission, "create request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return appErrors.New(appErrors.CodeSubmission, fmt.Sprintf("%s %s", method, target), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return appErrors.New(appErrors.CodeSubmission, fmt.Sprintf("form submission failed: status %d%s", resp.StatusCode, errorDetail(resp.Body)), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func encodeMultipart(req submit.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, v := range req.Values {
		if err := w.WriteField(v.Name, v.Value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.resolve(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return appErrors.New(appErrors.CodeTransport, "create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appErrors.New(appErrors.CodeTransport, fmt.Sprintf("GET %s", target), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return appErrors.New(appErrors.CodeTransport, fmt.Sprintf("GET %s: status %d%s", target, resp.StatusCode, errorDetail(resp.Body)), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.New(appErrors.CodeParse, fmt.Sprintf("decode %s", target), err)
	}
	return nil
}

// resolve joins ref onto the base URL. Absolute refs are used as they are.
func (c *Client) resolve(ref string, query url.Values) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		u = &url.URL{Path: ref}
	}
	target := c.baseURL.ResolveReference(u)
	if len(query) > 0 {
		q := target.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String()
}

func errorDetail(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return ": " + payload.Error
	}
	return ""
}
