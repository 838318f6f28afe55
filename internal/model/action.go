package model

import (
	"fmt"
	"strings"
	"time"
)

// Polarity says whether an action was good or bad for the user.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

func ParsePolarity(raw string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "+", "good":
		return PolarityPositive, nil
	case "negative", "-", "bad":
		return PolarityNegative, nil
	default:
		return "", fmt.Errorf("unknown polarity %q", raw)
	}
}

// Action is a single logged deed.
type Action struct {
	ID        uint     `gorm:"primaryKey"`
	UserID    uint     `gorm:"index"`
	Title     string   `gorm:"not null"`
	Polarity  Polarity `gorm:"index;not null"`
	Seed      Seed     `gorm:"index"`
	CreatedAt time.Time
}
