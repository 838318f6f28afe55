package model

import (
	"fmt"
	"strings"
)

// Seed tags an action or goal with the value it grows.
type Seed string

const (
	SeedKindness       Seed = "kindness"
	SeedHonesty        Seed = "honesty"
	SeedPatience       Seed = "patience"
	SeedGratitude      Seed = "gratitude"
	SeedCourage        Seed = "courage"
	SeedDiscipline     Seed = "discipline"
	SeedGenerosity     Seed = "generosity"
	SeedHumility       Seed = "humility"
	SeedRespect        Seed = "respect"
	SeedResponsibility Seed = "responsibility"
	SeedHealth         Seed = "health"
	SeedLearning       Seed = "learning"
)

// Seeds lists the taxonomy in display order.
var Seeds = []Seed{
	SeedKindness, SeedHonesty, SeedPatience, SeedGratitude,
	SeedCourage, SeedDiscipline, SeedGenerosity, SeedHumility,
	SeedRespect, SeedResponsibility, SeedHealth, SeedLearning,
}

// ParseSeed accepts a seed name in any case. An empty string yields an empty seed.
func ParseSeed(raw string) (Seed, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", nil
	}
	for _, s := range Seeds {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown seed %q", raw)
}

// Label returns the seed name with its first letter capitalised.
func (s Seed) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
