// Package rest is the stateless service layer over the Nerimity HTTP API.
// One method per endpoint; the store and the CLI are the only callers.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerimity/nerimity-go/internal/store"
)

// ErrConnectivity wraps transport-level failures so callers can tell a
// server rejection from an unreachable server.
var ErrConnectivity = errors.New("could not connect to server")

// ErrNoToken is returned when an authenticated endpoint is called before
// a login token exists.
var ErrNoToken = errors.New("no token")

// APIError is a non-2xx response carrying the server's error payload.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// Client talks to one Nerimity server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	// token returns the current bearer token, or "" while logged out.
	token func() string
}

// These are checked at compile time so the store wiring cannot drift.
var (
	_ store.MessageService = (*Client)(nil)
	_ store.DMService      = (*Client)(nil)
)

// New creates a client for baseURL. tokenFn supplies the bearer token for
// authenticated endpoints and may be nil for login-only use.
func New(baseURL string, tokenFn func() string) *Client {
	if tokenFn == nil {
		tokenFn = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   tokenFn,
	}
}

// requestOpts describes one API call. Out, when non-nil, receives the
// decoded JSON response; RawOut receives the raw body instead for
// endpoints that do not answer with JSON.
type requestOpts struct {
	method   string
	path     string
	params   url.Values
	body     any
	useToken bool
	out      any
	rawOut   *string
	// attachment switches the body to a multipart form: every field of
	// body (which must be map[string]string) plus the file itself.
	attachment *store.FileAttach
	fields     map[string]string
}

// do runs one request. Non-2xx responses decode into *APIError; transport
// failures wrap ErrConnectivity.
func (c *Client) do(ctx context.Context, opts requestOpts) error {
	u := c.baseURL + "/api" + opts.path
	if len(opts.params) > 0 {
		u += "?" + opts.params.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case opts.attachment != nil:
		form, ct, err := multipartBody(opts.fields, opts.attachment)
		if err != nil {
			return err
		}
		body = form
		contentType = ct
	case opts.body != nil:
		buf, err := json.Marshal(opts.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, opts.method, u, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if opts.useToken {
		token := c.token()
		if token == "" {
			return ErrNoToken
		}
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if opts.rawOut != nil {
		*opts.rawOut = string(raw)
		return nil
	}
	if opts.out != nil {
		if err := json.Unmarshal(raw, opts.out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// multipartBody builds a form with the given text fields followed by the
// attachment file itself.
func multipartBody(fields map[string]string, attachment *store.FileAttach) (io.Reader, string, error) {
	f, err := os.Open(attachment.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("attachment", attachment.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
