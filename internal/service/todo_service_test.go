package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/todo-backend/internal/domain"
	"github.com/todoapp/todo-backend/internal/repository"
	"github.com/todoapp/todo-backend/internal/repository/mocks"
	"github.com/todoapp/todo-backend/internal/service"
)

var (
	baseDate      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	executionDate = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
)

func mockTodo() *domain.Todo {
	return &domain.Todo{
		ID:        1,
		Title:     "Test Todo",
		Content:   "Test content",
		Priority:  domain.PriorityHigh,
		CreatedAt: baseDate,
		UpdatedAt: baseDate,
		AuthorID:  1,
	}
}

func TestTodoService_ListTodos(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()

	completed := mockTodo()
	completed.ID = 2
	completed.Title = "Completed Todo"
	completed.ExecutionDate = &executionDate
	repo.On("ListByAuthor", ctx, uint(1)).Return([]domain.Todo{*mockTodo(), *completed}, nil).Once()

	todos, err := svc.ListTodos(ctx, 1)

	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, uint(1), todos[0].ID)
	assert.False(t, todos[0].Completed)
	assert.True(t, todos[1].Completed)
	for _, todo := range todos {
		assert.Equal(t, uint(1), todo.AuthorID)
	}
	repo.AssertExpectations(t)
}

func TestTodoService_ListTodos_Empty(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("ListByAuthor", ctx, uint(1)).Return([]domain.Todo{}, nil).Once()

	todos, err := svc.ListTodos(ctx, 1)

	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestTodoService_ListTodos_StoreError(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	dbErr := errors.New("Database connection failed")
	repo.On("ListByAuthor", ctx, uint(1)).Return(nil, dbErr).Once()

	_, err := svc.ListTodos(ctx, 1)

	assert.True(t, errors.Is(err, dbErr))
}

func TestTodoService_GetTodoByID(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("FindByID", ctx, uint(1)).Return(mockTodo(), nil).Once()
	repo.On("FindByID", ctx, uint(999)).Return(nil, repository.ErrNotFound).Once()

	todo, err := svc.GetTodoByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Test Todo", todo.Title)

	_, err = svc.GetTodoByID(ctx, 999)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestTodoService_CreateTodo_Success(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	req := service.CreateTodoRequest{Title: "New Todo", Content: "New content", Priority: domain.PriorityMedium}

	repo.On("FindByAuthorAndTitle", ctx, uint(1), "New Todo").Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(todo *domain.Todo) bool {
		return todo.Title == "New Todo" && todo.Content == "New content" &&
			todo.Priority == domain.PriorityMedium && todo.AuthorID == 1 && todo.ExecutionDate == nil
	})).Run(func(args mock.Arguments) {
		todo := args.Get(1).(*domain.Todo)
		todo.ID = 2
		todo.CreatedAt = baseDate
		todo.UpdatedAt = baseDate
	}).Return(nil).Once()

	created, err := svc.CreateTodo(ctx, 1, req)

	require.NoError(t, err)
	assert.Equal(t, uint(2), created.ID)
	assert.Equal(t, uint(1), created.AuthorID)
	assert.False(t, created.Completed)
	repo.AssertExpectations(t)
}

func TestTodoService_CreateTodo_DuplicateTitleSameUser(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	req := service.CreateTodoRequest{Title: "Test Todo", Content: "x", Priority: domain.PriorityLow}
	repo.On("FindByAuthorAndTitle", ctx, uint(1), "Test Todo").Return(mockTodo(), nil).Once()

	_, err := svc.CreateTodo(ctx, 1, req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConflict))
	assert.Contains(t, err.Error(), `A todo with title "Test Todo" already exists`)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTodoService_CreateTodo_SameTitleDifferentUser(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	req := service.CreateTodoRequest{Title: "Test Todo", Priority: domain.PriorityLow}
	repo.On("FindByAuthorAndTitle", ctx, uint(2), "Test Todo").Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Todo")).Return(nil).Once()

	created, err := svc.CreateTodo(ctx, 2, req)

	require.NoError(t, err)
	assert.Equal(t, uint(2), created.AuthorID)
}

func TestTodoService_CreateTodo_RaceCaughtByUniqueIndex(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	req := service.CreateTodoRequest{Title: "Racy", Priority: domain.PriorityLow}
	repo.On("FindByAuthorAndTitle", ctx, uint(1), "Racy").Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Todo")).Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.CreateTodo(ctx, 1, req)

	assert.True(t, errors.Is(err, service.ErrConflict))
}

func TestTodoService_CreateTodo_Validation(t *testing.T) {
	cases := []struct {
		name  string
		req   service.CreateTodoRequest
		field string
	}{
		{"empty title", service.CreateTodoRequest{Title: "", Priority: domain.PriorityLow}, "title"},
		{"blank title", service.CreateTodoRequest{Title: "   ", Priority: domain.PriorityLow}, "title"},
		{"long title", service.CreateTodoRequest{Title: strings.Repeat("a", 51), Priority: domain.PriorityLow}, "title"},
		{"long content", service.CreateTodoRequest{Title: "ok", Content: strings.Repeat("c", 257), Priority: domain.PriorityLow}, "content"},
		{"unknown priority", service.CreateTodoRequest{Title: "ok", Priority: "HAUT"}, "priority"},
		{"missing priority", service.CreateTodoRequest{Title: "ok"}, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mocks.TodoRepository)
			svc := service.NewTodoService(repo)

			_, err := svc.CreateTodo(context.Background(), 1, tc.req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, service.ErrValidation))
			var verr *service.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tc.field)
			repo.AssertNotCalled(t, "FindByAuthorAndTitle", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTodoService_CreateTodo_BoundaryLengthsAccepted(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	title := strings.Repeat("é", 50)
	req := service.CreateTodoRequest{Title: title, Content: strings.Repeat("c", 256), Priority: domain.PriorityHigh}
	repo.On("FindByAuthorAndTitle", ctx, uint(1), title).Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Todo")).Return(nil).Once()

	_, err := svc.CreateTodo(ctx, 1, req)

	assert.NoError(t, err)
}

func TestTodoService_UpdateTodo_MarkCompleted(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	completed := mockTodo()
	completed.ExecutionDate = &executionDate
	repo.On("UpdateExecutionDate", ctx, uint(1), mock.MatchedBy(func(d *time.Time) bool {
		return d != nil && d.Equal(executionDate)
	})).Return(completed, nil).Once()

	updated, err := svc.UpdateTodo(ctx, 1, service.UpdateTodoRequest{ExecutionDate: service.SetTime(executionDate)})

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.True(t, updated.ExecutionDate.Equal(executionDate))
}

func TestTodoService_UpdateTodo_MarkIncomplete(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("UpdateExecutionDate", ctx, uint(2), (*time.Time)(nil)).Return(mockTodo(), nil).Once()

	updated, err := svc.UpdateTodo(ctx, 2, service.UpdateTodoRequest{ExecutionDate: service.ClearTime()})

	require.NoError(t, err)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.ExecutionDate)
}

func TestTodoService_UpdateTodo_EmptyPatchIsNoop(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("FindByID", ctx, uint(1)).Return(mockTodo(), nil).Once()

	updated, err := svc.UpdateTodo(ctx, 1, service.UpdateTodoRequest{})

	require.NoError(t, err)
	assert.Equal(t, uint(1), updated.ID)
	repo.AssertNotCalled(t, "UpdateExecutionDate", mock.Anything, mock.Anything, mock.Anything)
}

func TestTodoService_UpdateTodo_NotFound(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("UpdateExecutionDate", ctx, uint(999), (*time.Time)(nil)).Return(nil, repository.ErrNotFound).Once()

	_, err := svc.UpdateTodo(ctx, 999, service.UpdateTodoRequest{ExecutionDate: service.ClearTime()})

	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestTodoService_DeleteTodo(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	repo.On("Delete", ctx, uint(1)).Return(nil).Once()
	repo.On("Delete", ctx, uint(999)).Return(repository.ErrNotFound).Once()

	assert.NoError(t, svc.DeleteTodo(ctx, 1))
	assert.True(t, errors.Is(svc.DeleteTodo(ctx, 999), service.ErrNotFound))
	repo.AssertExpectations(t)
}

func TestUpdateTodoRequest_DecodesTriState(t *testing.T) {
	var absent service.UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.ExecutionDate.Set)

	var cleared service.UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"executionDate":null}`), &cleared))
	assert.True(t, cleared.ExecutionDate.Set)
	assert.Nil(t, cleared.ExecutionDate.Value)

	var set service.UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"executionDate":"2024-01-02T10:00:00Z"}`), &set))
	assert.True(t, set.ExecutionDate.Set)
	require.NotNil(t, set.ExecutionDate.Value)
	assert.True(t, set.ExecutionDate.Value.Equal(executionDate))
}

func TestNullableTime_AcceptsDateOnly(t *testing.T) {
	var req service.UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"executionDate":"2024-01-01"}`), &req))
	require.NotNil(t, req.ExecutionDate.Value)
	assert.True(t, req.ExecutionDate.Value.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	var offset service.UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"executionDate":"2024-01-01T12:30:00+02:00"}`), &offset))
	assert.True(t, offset.ExecutionDate.Value.Equal(time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)))

	for _, bad := range []string{`"yesterday"`, `"2024-13-01"`, `"01/02/2024"`, `20240101`} {
		var r service.UpdateTodoRequest
		assert.Error(t, json.Unmarshal([]byte(`{"executionDate":`+bad+`}`), &r), bad)
	}
}

func TestTodoService_CreateTodo_WithDateOnlyExecutionDate(t *testing.T) {
	repo := new(mocks.TodoRepository)
	svc := service.NewTodoService(repo)
	ctx := context.Background()

	var req service.CreateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Dated","content":"","priority":"HIGH","executionDate":"2024-01-01"}`), &req))

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.On("FindByAuthorAndTitle", ctx, uint(1), "Dated").Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(todo *domain.Todo) bool {
		return todo.ExecutionDate != nil && todo.ExecutionDate.Equal(day)
	})).Return(nil).Once()

	created, err := svc.CreateTodo(ctx, 1, req)

	require.NoError(t, err)
	assert.True(t, created.Completed)
	repo.AssertExpectations(t)
}
