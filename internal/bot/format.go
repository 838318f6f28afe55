package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	"seeding/internal/model"
	"seeding/internal/repository"
)

var seedIcons = map[model.Seed]string{
	model.SeedKindness:       "💗",
	model.SeedHonesty:        "🪞",
	model.SeedPatience:       "🐢",
	model.SeedGratitude:      "🙏",
	model.SeedCourage:        "🦁",
	model.SeedDiscipline:     "🧭",
	model.SeedGenerosity:     "🎁",
	model.SeedHumility:       "🌾",
	model.SeedRespect:        "🤝",
	model.SeedResponsibility: "🧱",
	model.SeedHealth:         "🩺",
	model.SeedLearning:       "🎓",
}

func seedButton(seed model.Seed) string {
	return fmt.Sprintf("%s %s", seedIcons[seed], seed.Label())
}

// seedFromLabel strips the icon from a seed button label.
func seedFromLabel(text string) string {
	return stripIcon(text)
}

func polarityFromLabel(text string) string {
	return stripIcon(text)
}

func stripIcon(text string) string {
	trimmed := strings.TrimSpace(strings.TrimLeftFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }))
	if trimmed == "" {
		return strings.TrimSpace(text)
	}
	return trimmed
}

func formatSeeds(tally []repository.SeedCount) string {
	good := make(map[model.Seed]int64)
	bad := make(map[model.Seed]int64)
	for _, c := range tally {
		if c.Polarity == model.PolarityNegative {
			bad[c.Seed] += c.Count
		} else {
			good[c.Seed] += c.Count
		}
	}

	var sb strings.Builder
	sb.WriteString("🌿 <b>Seeds</b> (last 7 days)\n")
	for _, seed := range model.Seeds {
		sb.WriteString(fmt.Sprintf("%s %s", seedIcons[seed], seed.Label()))
		if good[seed] > 0 || bad[seed] > 0 {
			sb.WriteString(fmt.Sprintf(" · +%d / −%d", good[seed], bad[seed]))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

// parseSpan reads a count followed by m, h, d or w.
func parseSpan(raw string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if len(value) < 2 {
		return 0, fmt.Errorf("invalid span %q", raw)
	}
	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid span %q", raw)
	}
	var unit time.Duration
	switch value[len(value)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid span unit in %q", raw)
	}
	return time.Duration(n) * unit, nil
}

func parseWindow(raw string) (time.Duration, error) {
	return parseSpan(raw)
}

// parseDeadline accepts a calendar date, meaning the end of that day in
// now's location, or a span counted from now.
func parseDeadline(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if day, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		y, m, d := day.Date()
		return time.Date(y, m, d, 23, 59, 59, 0, now.Location()), nil
	}
	span, err := parseSpan(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q", raw)
	}
	return now.Add(span), nil
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
