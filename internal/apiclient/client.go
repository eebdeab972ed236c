// Package apiclient is a typed HTTP client for the Mind Scribe REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response. Message is the server's user-facing text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL, e.g. http://localhost:4000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// -----------------------------------------------------------------------------
// auth
// -----------------------------------------------------------------------------

// Register creates an account.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) error {
	var resp auth.MessageResponse
	return c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &resp)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (string, error) {
	var resp auth.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Verify returns the user id the token belongs to.
func (c *Client) Verify(ctx context.Context, token string) (string, error) {
	var resp auth.VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", token, nil, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// Me fetches the caller's profile.
func (c *Client) Me(ctx context.Context, token string) (*auth.User, error) {
	var resp auth.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdateProfile replaces fullname, email and avatar.
func (c *Client) UpdateProfile(ctx context.Context, token string, req auth.UpdateProfileRequest) (*auth.User, error) {
	var resp auth.UserResponse
	if err := c.do(ctx, http.MethodPut, "/api/auth/update-profile", token, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ChangePassword swaps the caller's password.
func (c *Client) ChangePassword(ctx context.Context, token string, req auth.ChangePasswordRequest) error {
	var resp auth.MessageResponse
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", token, req, &resp)
}

// -----------------------------------------------------------------------------
// notes
// -----------------------------------------------------------------------------

// ListNotes returns every note visible to the caller, optionally filtered.
func (c *Client) ListNotes(ctx context.Context, token, category string) ([]*notes.Note, error) {
	path := "/api/notes/"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var resp notes.ListNotesResponse
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// CreateNote creates a note owned by the caller.
func (c *Client) CreateNote(ctx context.Context, token string, req notes.NoteRequest) (*notes.Note, error) {
	var resp notes.NoteResponse
	if err := c.do(ctx, http.MethodPost, "/api/notes/", token, req, &resp); err != nil {
		return nil, err
	}
	return resp.Note, nil
}

// UpdateNote replaces the editable fields of a note.
func (c *Client) UpdateNote(ctx context.Context, token, id string, req notes.NoteRequest) (*notes.Note, error) {
	var resp notes.NoteResponse
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), token, req, &resp); err != nil {
		return nil, err
	}
	return resp.Note, nil
}

// DeleteNote removes a note the caller owns.
func (c *Client) DeleteNote(ctx context.Context, token, id string) error {
	var resp notes.DeleteResponse
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), token, nil, &resp)
}

// FindNearby returns the caller's own notes within radiusM metres, nearest
// first. A zero radius lets the server pick its default.
func (c *Client) FindNearby(ctx context.Context, token string, longitude, latitude float64, radiusM int) ([]*notes.Note, error) {
	q := url.Values{
		"longitude": {strconv.FormatFloat(longitude, 'f', -1, 64)},
		"latitude":  {strconv.FormatFloat(latitude, 'f', -1, 64)},
	}
	if radiusM > 0 {
		q.Set("radius", strconv.Itoa(radiusM))
	}
	var resp notes.ListNotesResponse
	if err := c.do(ctx, http.MethodGet, "/api/notes/nearby?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// Owner resolves the owner's public profile.
func (c *Client) Owner(ctx context.Context, token, id string) (*auth.PublicProfile, error) {
	var resp notes.OwnerResponse
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id)+"/owner", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Owner, nil
}

// AddCollaborator shares a note with email.
func (c *Client) AddCollaborator(ctx context.Context, token, id, email string) (*notes.Note, error) {
	return c.collaborator(ctx, token, id, "add-collaborator", email)
}

// RemoveCollaborator revokes email's access.
func (c *Client) RemoveCollaborator(ctx context.Context, token, id, email string) (*notes.Note, error) {
	return c.collaborator(ctx, token, id, "remove-collaborator", email)
}

func (c *Client) collaborator(ctx context.Context, token, id, action, email string) (*notes.Note, error) {
	var resp notes.NoteResponse
	body := notes.CollaboratorRequest{CollaboratorEmail: email}
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id)+"/"+action, token, body, &resp); err != nil {
		return nil, err
	}
	return resp.Note, nil
}

// -----------------------------------------------------------------------------
// transport
// -----------------------------------------------------------------------------

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
