package model

import "time"

// Goal is a user target with a deadline.
type Goal struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      uint   `gorm:"index"`
	Title       string
	Description string
	Seed        Seed
	Deadline    time.Time
	Status      string `gorm:"index;size:32"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
