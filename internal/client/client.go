// Package client talks to the todo API on behalf of one logged-in user and
// keeps that user's session between runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/todoapp/todo-backend/internal/domain"
)

// ErrNotAuthenticated is returned before any request is sent when the
// session holds no token.
var ErrNotAuthenticated = errors.New("not logged in")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Todo is a todo item as served by the API.
type Todo struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Priority      domain.Priority `json:"priority"`
	ExecutionDate *time.Time      `json:"executionDate"`
	AuthorID      uint            `json:"authorId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Completed is derived from the execution date, never stored.
func (t Todo) Completed() bool {
	return t.ExecutionDate != nil
}

// NewTodo is the body of a create call.
type NewTodo struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Priority domain.Priority `json:"priority"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the time source used when completing a todo.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = &Session{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		session:    session,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp, false); err != nil {
		return User{}, err
	}
	if err := c.session.Set(resp.AccessToken, resp.User); err != nil {
		return User{}, err
	}
	logrus.WithField("email", resp.User.Email).Debug("Logged in")
	return resp.User, nil
}

// Logout forgets the session. The API keeps no server-side session.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &todos, true); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) GetTodo(ctx context.Context, id uint) (*Todo, error) {
	var todo Todo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/todos/%d", id), nil, &todo, true); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) CreateTodo(ctx context.Context, todo NewTodo) (*Todo, error) {
	var created Todo
	if err := c.do(ctx, http.MethodPost, "/todos", todo, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// ToggleTodo completes an open todo and reopens a completed one.
func (c *Client) ToggleTodo(ctx context.Context, todo Todo) (*Todo, error) {
	if todo.Completed() {
		return c.UncompleteTodo(ctx, todo.ID)
	}
	return c.CompleteTodo(ctx, todo.ID)
}

// CompleteTodo stamps the todo with the current time.
func (c *Client) CompleteTodo(ctx context.Context, id uint) (*Todo, error) {
	return c.setExecutionDate(ctx, id, c.now().UTC())
}

func (c *Client) UncompleteTodo(ctx context.Context, id uint) (*Todo, error) {
	return c.setExecutionDate(ctx, id, nil)
}

func (c *Client) setExecutionDate(ctx context.Context, id uint, value any) (*Todo, error) {
	var updated Todo
	body := map[string]any{"executionDate": value}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/todos/%d", id), body, &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authenticated bool) error {
	token := c.session.Token()
	if authenticated && token == "" {
		return ErrNotAuthenticated
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		if authenticated && resp.StatusCode == http.StatusUnauthorized {
			logrus.WithField("path", path).Debug("Token rejected, clearing session")
			if err := c.session.Clear(); err != nil {
				logrus.WithError(err).Warn("Failed to clear session")
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return apiErr
}

// SortForDisplay orders todos for listing: open ones first, then by
// descending priority. Ties keep the server's order.
func SortForDisplay(todos []Todo) []Todo {
	sorted := make([]Todo, len(todos))
	copy(sorted, todos)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Completed() != b.Completed() {
			return !a.Completed()
		}
		return a.Priority.Rank() > b.Priority.Rank()
	})
	return sorted
}
