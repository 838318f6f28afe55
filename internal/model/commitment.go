package model

import "time"

// Commitment is a time-boxed promise made after a negative action.
type Commitment struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      uint   `gorm:"index"`
	ActionID    *uint  `gorm:"index"`
	Title       string
	Deadline    time.Time
	Status      string `gorm:"index;size:32"`
	FulfilledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
