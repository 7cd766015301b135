package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/todoapp/todo-backend/internal/domain"
	"github.com/todoapp/todo-backend/internal/repository"
)

// CreateTodoRequest holds the data needed to create a new todo
type CreateTodoRequest struct {
	Title         string          `json:"title" validate:"required,max=50"`
	Content       string          `json:"content" validate:"max=256"`
	Priority      domain.Priority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	ExecutionDate NullableTime    `json:"executionDate"`
}

// UpdateTodoRequest is a partial patch. Only the execution date is mutable.
type UpdateTodoRequest struct {
	ExecutionDate NullableTime `json:"executionDate"`
}

// NullableTime tells an absent JSON key (Set == false) apart from an
// explicit null (Set == true, Value == nil).
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// SetTime returns a NullableTime holding t.
func SetTime(t time.Time) NullableTime { return NullableTime{Set: true, Value: &t} }

// ClearTime returns a NullableTime holding an explicit null.
func ClearTime() NullableTime { return NullableTime{Set: true} }

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// parseDate accepts an RFC 3339 timestamp or a bare ISO date, the latter
// read as midnight UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("executionDate %q is not an ISO 8601 date", s)
	}
	return t, nil
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// TodoResponse is the standard representation of a Todo returned by the service.
type TodoResponse struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Priority      domain.Priority `json:"priority"`
	ExecutionDate *time.Time      `json:"executionDate"`
	Completed     bool            `json:"completed"`
	AuthorID      uint            `json:"authorId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether userID is the todo's author.
func (t *TodoResponse) OwnedBy(userID uint) bool {
	return t.AuthorID == userID
}

func toTodoResponse(todo *domain.Todo) *TodoResponse {
	return &TodoResponse{
		ID:            todo.ID,
		Title:         todo.Title,
		Content:       todo.Content,
		Priority:      todo.Priority,
		ExecutionDate: todo.ExecutionDate,
		Completed:     todo.IsCompleted(),
		AuthorID:      todo.AuthorID,
		CreatedAt:     todo.CreatedAt,
		UpdatedAt:     todo.UpdatedAt,
	}
}

// --- Service Interface ---

// TodoService defines the operations for managing todos.
// It contains the core business logic
type TodoService interface {
	// ListTodos returns the todos of userID: incomplete first, then by
	// descending priority, newest first.
	ListTodos(ctx context.Context, userID uint) ([]TodoResponse, error)

	// GetTodoByID retrieves a single todo item by its ID, whoever owns it.
	GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error)

	// CreateTodo creates a todo owned by userID. A title already used by
	// that user yields ErrConflict.
	CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoResponse, error)

	// UpdateTodo applies a partial patch to the execution date.
	UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error)

	// DeleteTodo handles deleting a todo item by its ID.
	DeleteTodo(ctx context.Context, id uint) error
}

// --- Service Implementation ---

type todoService struct {
	repo repository.TodoRepository
}

// NewTodoService creates a new instance of todoService.
func NewTodoService(repo repository.TodoRepository) TodoService {
	return &todoService{
		repo: repo,
	}
}

func (s *todoService) ListTodos(ctx context.Context, userID uint) ([]TodoResponse, error) {
	todos, err := s.repo.ListByAuthor(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Error fetching todos from repository")
		return nil, fmt.Errorf("list todos: %w", err)
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		responses = append(responses, *toTodoResponse(&todos[i]))
	}
	return responses, nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Todo with ID %d not found", id)
		}
		logrus.WithField("todo_id", id).WithError(err).Error("Error fetching todo from repository")
		return nil, fmt.Errorf("get todo %d: %w", id, err)
	}
	return toTodoResponse(todo), nil
}

func (s *todoService) CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "title": req.Title})

	_, err := s.repo.FindByAuthorAndTitle(ctx, userID, req.Title)
	switch {
	case err == nil:
		return nil, titleConflict(req.Title)
	case !errors.Is(err, repository.ErrNotFound):
		logCtx.WithError(err).Error("Error checking title uniqueness")
		return nil, fmt.Errorf("create todo: %w", err)
	}

	newTodo := &domain.Todo{
		Title:         req.Title,
		Content:       req.Content,
		Priority:      req.Priority,
		ExecutionDate: req.ExecutionDate.Value,
		AuthorID:      userID,
	}
	if err := s.repo.Create(ctx, newTodo); err != nil {
		// A concurrent create won the race; the unique index caught it.
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, titleConflict(req.Title)
		}
		logCtx.WithError(err).Error("Error creating todo in repository")
		return nil, fmt.Errorf("create todo: %w", err)
	}

	logCtx.WithField("todo_id", newTodo.ID).Info("Todo created")
	return toTodoResponse(newTodo), nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error) {
	if !req.ExecutionDate.Set {
		return s.GetTodoByID(ctx, id)
	}

	updated, err := s.repo.UpdateExecutionDate(ctx, id, req.ExecutionDate.Value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Todo with ID %d not found", id)
		}
		logrus.WithField("todo_id", id).WithError(err).Error("Error updating todo in repository")
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	return toTodoResponse(updated), nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Todo with ID %d not found", id)
		}
		logrus.WithField("todo_id", id).WithError(err).Error("Error deleting todo from repository")
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

func titleConflict(title string) error {
	return newError(ErrConflict, "A todo with title %q already exists", title)
}
