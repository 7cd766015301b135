package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/todoapp/todo-backend/internal/domain"
)

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	FindByAuthorAndTitle(ctx context.Context, authorID uint, title string) (*domain.Todo, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]domain.Todo, error)
	UpdateExecutionDate(ctx context.Context, id uint, executionDate *time.Time) (*domain.Todo, error)
	Delete(ctx context.Context, id uint) error
}

// listOrder sorts incomplete todos first, then by priority rank and recency.
var listOrder = "execution_date ASC NULLS FIRST, " + priorityRankSQL() + " DESC, created_at DESC, id DESC"

func priorityRankSQL() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range domain.Priorities() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(todo).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create todo (author: %d): %w", todo.AuthorID, err)
	}
	return nil
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).First(&todo, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find todo by id %d: %w", id, err)
	}
	return &todo, nil
}

func (r *gormTodoRepository) FindByAuthorAndTitle(ctx context.Context, authorID uint, title string) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND title = ?", authorID, title).
		First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find todo by title (author: %d): %w", authorID, err)
	}
	return &todo, nil
}

// ListByAuthor returns every todo of authorID in list order.
func (r *gormTodoRepository) ListByAuthor(ctx context.Context, authorID uint) ([]domain.Todo, error) {
	todos := make([]domain.Todo, 0)
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order(listOrder).
		Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list todos (author: %d): %w", authorID, err)
	}
	return todos, nil
}

// UpdateExecutionDate sets or clears (nil) the execution date and returns the
// updated row.
func (r *gormTodoRepository) UpdateExecutionDate(ctx context.Context, id uint, executionDate *time.Time) (*domain.Todo, error) {
	var value any
	if executionDate != nil {
		value = *executionDate
	}
	result := r.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("id = ?", id).
		Update("execution_date", value)
	if result.Error != nil {
		return nil, fmt.Errorf("gorm: update todo %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *gormTodoRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete todo %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
