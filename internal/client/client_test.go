package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/todo-backend/internal/domain"
)

func loggedIn(t *testing.T) *Session {
	t.Helper()
	s, err := LoadSession(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, s.Set("tok", User{ID: 1, Email: "toto@kresus.eu", Name: "toto"}))
	return s
}

func TestLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "toto@kresus.eu", "password": "test"}, body)
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":1,"email":"toto@kresus.eu","name":"toto"}}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	session, err := LoadSession(path)
	require.NoError(t, err)
	c := New(srv.URL, session)

	user, err := c.Login(context.Background(), "toto@kresus.eu", "test")
	require.NoError(t, err)
	assert.Equal(t, "toto", user.Name)
	assert.True(t, session.IsAuthenticated())

	reloaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.Token())
}

func TestLoginFailureReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"error":"Unauthorized","message":"Invalid email or password"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Login(context.Background(), "toto@kresus.eu", "nope")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.False(t, c.Session().IsAuthenticated())
}

func TestRequestsWithoutSessionNeverLeave(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.ListTodos(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.CreateTodo(ctx, NewTodo{Title: "x", Priority: domain.PriorityLow})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, c.DeleteTodo(ctx, 1), ErrNotAuthenticated)
	_, err = c.CompleteTodo(ctx, 1)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.Zero(t, hits.Load())
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"message":"Invalid or expired token"}`))
	}))
	defer srv.Close()

	session := loggedIn(t)
	c := New(srv.URL, session)

	_, err := c.ListTodos(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, session.IsAuthenticated())

	_, err = c.ListTodos(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestListTodosSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":1,"title":"a","priority":"HIGH","executionDate":null},{"id":2,"title":"b","priority":"LOW","executionDate":"2024-01-01T00:00:00Z"}]`))
	}))
	defer srv.Close()

	todos, err := New(srv.URL, loggedIn(t)).ListTodos(context.Background())

	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.False(t, todos[0].Completed())
	assert.True(t, todos[1].Completed())
}

func TestToggleTodo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/todos/7", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "executionDate": body["executionDate"]})
	}))
	defer srv.Close()

	c := New(srv.URL, loggedIn(t), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	completed, err := c.ToggleTodo(ctx, Todo{ID: 7})
	require.NoError(t, err)
	assert.True(t, completed.Completed())

	reopened, err := c.ToggleTodo(ctx, *completed)
	require.NoError(t, err)
	assert.False(t, reopened.Completed())

	require.Len(t, bodies, 2)
	assert.Equal(t, "2024-05-01T12:00:00Z", bodies[0]["executionDate"])
	v, ok := bodies[1]["executionDate"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDeleteTodoAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/todos/1":
			w.WriteHeader(http.StatusNoContent)
		case "/todos/2":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"statusCode":403,"message":"You do not have access to this todo"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	session := loggedIn(t)
	c := New(srv.URL, session)
	ctx := context.Background()

	require.NoError(t, c.DeleteTodo(ctx, 1))

	var apiErr *APIError
	require.ErrorAs(t, c.DeleteTodo(ctx, 2), &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.True(t, session.IsAuthenticated())

	require.ErrorAs(t, c.DeleteTodo(ctx, 3), &apiErr)
	assert.Equal(t, "HTTP error! status: 404", apiErr.Message)
}

func TestSortForDisplay(t *testing.T) {
	done := time.Now()
	todos := []Todo{
		{ID: 1, Priority: domain.PriorityLow, ExecutionDate: &done},
		{ID: 2, Priority: domain.PriorityLow},
		{ID: 3, Priority: domain.PriorityHigh, ExecutionDate: &done},
		{ID: 4, Priority: domain.PriorityHigh},
		{ID: 5, Priority: domain.PriorityMedium},
		{ID: 6, Priority: domain.PriorityHigh},
	}

	sorted := SortForDisplay(todos)

	ids := make([]uint, 0, len(sorted))
	for _, todo := range sorted {
		ids = append(ids, todo.ID)
	}
	assert.Equal(t, []uint{4, 6, 5, 2, 3, 1}, ids)
	assert.Equal(t, uint(1), todos[0].ID, "input is left untouched")
}
