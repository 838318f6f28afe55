package model

import (
	"strings"
	"time"
)

// User is a chat participant. Actions, commitments and goals hang off ID.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	TelegramID   int64 `gorm:"uniqueIndex"`
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string `gorm:"size:16"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName picks the friendliest name Telegram gave us.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "friend"
}
