package domain

import "time"

// Todo is a task owned by exactly one user. A non-nil ExecutionDate is the
// only completion signal.
type Todo struct {
	ID            uint       `gorm:"primaryKey"`
	Title         string     `gorm:"size:50;not null;uniqueIndex:idx_todos_author_title,priority:2"`
	Content       string     `gorm:"size:256;not null;default:''"`
	Priority      Priority   `gorm:"type:varchar(8);not null;default:'LOW'"`
	ExecutionDate *time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AuthorID      uint  `gorm:"not null;uniqueIndex:idx_todos_author_title,priority:1"`
	Author        *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// IsCompleted reports whether the todo carries an execution date, whatever
// its value.
func (t *Todo) IsCompleted() bool {
	return t.ExecutionDate != nil
}

