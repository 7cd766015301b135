package domain

import "time"

// User is an account able to log in. Password holds a bcrypt hash.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"size:254;uniqueIndex;not null"`
	Name      string `gorm:"size:120;not null;default:''"`
	Password  string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
