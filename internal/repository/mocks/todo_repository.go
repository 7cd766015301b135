package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/todoapp/todo-backend/internal/domain"
)

// TodoRepository is a testify mock of repository.TodoRepository.
type TodoRepository struct {
	mock.Mock
}

func (m *TodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	args := m.Called(ctx, todo)
	return args.Error(0)
}

func (m *TodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	args := m.Called(ctx, id)
	return todoOrNil(args.Get(0)), args.Error(1)
}

func (m *TodoRepository) FindByAuthorAndTitle(ctx context.Context, authorID uint, title string) (*domain.Todo, error) {
	args := m.Called(ctx, authorID, title)
	return todoOrNil(args.Get(0)), args.Error(1)
}

func (m *TodoRepository) ListByAuthor(ctx context.Context, authorID uint) ([]domain.Todo, error) {
	args := m.Called(ctx, authorID)
	todos, _ := args.Get(0).([]domain.Todo)
	return todos, args.Error(1)
}

func (m *TodoRepository) UpdateExecutionDate(ctx context.Context, id uint, executionDate *time.Time) (*domain.Todo, error) {
	args := m.Called(ctx, id, executionDate)
	return todoOrNil(args.Get(0)), args.Error(1)
}

func (m *TodoRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func todoOrNil(v any) *domain.Todo {
	todo, _ := v.(*domain.Todo)
	return todo
}
