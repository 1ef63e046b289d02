// Package client talks to a filebox server. The login session lives in a
// SessionStore rather than in the Client, so a CLI can persist it between
// invocations and tests can swap it for memory.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxUploadBytes matches the server's default upload limit.
const DefaultMaxUploadBytes = 5 << 20

var ErrFileTooLarge = errors.New("file too large")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// File is one entry of the caller's file list.
type File struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore
	maxUpload  int64
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxUploadBytes sets the size checked before an upload is sent.
func WithMaxUploadBytes(n int64) Option {
	return func(cl *Client) { cl.maxUpload = n }
}

func New(baseURL string, store SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		store:      store,
		maxUpload:  DefaultMaxUploadBytes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type loginResponse struct {
	Message string `json:"message"`
	Session struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
		User        struct {
			ID    uuid.UUID `json:"id"`
			Email string    `json:"email"`
		} `json:"user"`
	} `json:"session"`
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/register", credentials{email, password})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Login authenticates and saves the resulting session in the store.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/login", credentials{email, password})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Session.AccessToken == "" {
		return nil, errors.New("login response carried no token")
	}

	s := &Session{
		AccessToken: resp.Session.AccessToken,
		ExpiresAt:   resp.Session.ExpiresAt,
		UserID:      resp.Session.User.ID,
		Email:       resp.Session.User.Email,
	}
	if err := c.store.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Logout revokes the token on the server and always clears the local
// session. A failed server call does not keep the user logged in locally.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err == nil {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
		if reqErr == nil {
			req.Header.Set("Authorization", "Bearer "+s.AccessToken)
			_ = c.do(req, nil)
		}
	}
	return c.store.Clear()
}

// Session returns the stored session, or ErrNoSession if there is none or
// it has expired.
func (c *Client) Session() (*Session, error) {
	s, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if s.Expired(c.now()) {
		_ = c.store.Clear()
		return nil, ErrNoSession
	}
	return s, nil
}

func (c *Client) List(ctx context.Context) ([]File, error) {
	req, err := c.authRequest(ctx, http.MethodGet, "/files", nil)
	if err != nil {
		return nil, err
	}
	var files []File
	if err := c.do(req, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Upload sends body as a multipart "file" field named name and returns the
// stored path. Oversized payloads are refused before any request is made.
func (c *Client) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, c.maxUpload+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > c.maxUpload {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, name, c.maxUpload)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", contentType(name, data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.authRequest(ctx, http.MethodPost, "/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp messageResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	req, err := c.authRequest(ctx, http.MethodDelete, "/files/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, v any) (*http.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) authRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
