package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
	"seeding/internal/repository"
	"seeding/internal/settings"
)

// TallyPeriod is how far back the seed tally in a summary looks.
const TallyPeriod = 7 * 24 * time.Hour

// ReminderService builds human-readable summaries for periodic notifications.
type ReminderService struct {
	commitments *CommitmentService
	goals       *GoalService
	actions     *ActionService
	settings    *settings.Settings
}

func NewReminderService(commitments *CommitmentService, goals *GoalService, actions *ActionService, st *settings.Settings) *ReminderService {
	return &ReminderService{commitments: commitments, goals: goals, actions: actions, settings: st}
}

func (s *ReminderService) Summary(ctx context.Context, user *model.User, now time.Time) (string, error) {
	commitments, err := s.commitments.ListActive(ctx, user)
	if err != nil {
		return "", err
	}
	goals, err := s.goals.ListOpen(ctx, user)
	if err != nil {
		return "", err
	}
	tally, err := s.actions.SeedTally(ctx, user, TallyPeriod)
	if err != nil {
		return "", err
	}

	layout := s.settings.Snapshot().DateLayout()

	var builder strings.Builder
	builder.WriteString("🌱 <b>Seeding summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format(layout)))

	builder.WriteString("🤝 <b>Commitments</b>\n")
	if len(commitments) == 0 {
		builder.WriteString("— nothing to make up for\n")
	} else {
		for _, c := range commitments {
			builder.WriteString(FormatCommitment(c, now))
		}
	}

	builder.WriteString("\n🎯 <b>Goals</b>\n")
	if len(goals) == 0 {
		builder.WriteString("— no open goals\n")
	} else {
		for _, g := range goals {
			builder.WriteString(FormatGoal(g, layout, now.Location()))
		}
	}

	builder.WriteString("\n🌿 <b>Seeds this week</b>\n")
	builder.WriteString(formatTally(tally))

	return strings.TrimSpace(builder.String()), nil
}

// FormatCommitment renders one commitment line with its countdown.
func FormatCommitment(c CommitmentView, now time.Time) string {
	var sb strings.Builder
	icon := "⏳"
	if c.Obligation.Status == lifecycle.StatusUnfulfilled {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s <code>%s</code> %s\n", icon, repository.ShortRef(c.Commitment.ID), html.EscapeString(strings.TrimSpace(c.Commitment.Title))))

	left := TimeLeft(c.Obligation, now)
	if c.Obligation.Status == lifecycle.StatusUnfulfilled {
		sb.WriteString(fmt.Sprintf("   ⌛ missed, still redeemable for %s\n", FormatDuration(left)))
	} else {
		sb.WriteString(fmt.Sprintf("   ⏰ %s left\n", FormatDuration(left)))
	}
	return sb.String()
}

// FormatGoal renders one goal line with its progress bar. The deadline is
// shown as a date in loc.
func FormatGoal(g GoalView, layout string, loc *time.Location) string {
	var sb strings.Builder
	icon := "🟢"
	if g.Overdue || g.Obligation.Status == lifecycle.StatusOverdue {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s <code>%s</code> %s", icon, repository.ShortRef(g.Goal.ID), html.EscapeString(strings.TrimSpace(g.Goal.Title))))
	if g.Goal.Seed != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", g.Goal.Seed.Label()))
	}
	sb.WriteByte('\n')

	deadline := g.Goal.Deadline.In(loc).Format(layout)
	if g.Overdue {
		sb.WriteString(fmt.Sprintf("   %s 100%% · due %s — <b>overdue</b>\n", ProgressBar(100), deadline))
	} else {
		sb.WriteString(fmt.Sprintf("   %s %d%% · due %s\n", ProgressBar(g.Progress), g.Progress, deadline))
	}
	return sb.String()
}

// ProgressBar draws a ten-cell bar for a percentage.
func ProgressBar(percent int) string {
	filled := min(max(percent, 0), 100) / 10
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// FormatDuration renders a countdown rounded to minutes.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

func formatTally(counts []repository.SeedCount) string {
	if len(counts) == 0 {
		return "— nothing logged yet\n"
	}
	type tally struct{ good, bad int64 }
	bySeed := make(map[model.Seed]*tally)
	for _, c := range counts {
		t, ok := bySeed[c.Seed]
		if !ok {
			t = &tally{}
			bySeed[c.Seed] = t
		}
		if c.Polarity == model.PolarityNegative {
			t.bad += c.Count
		} else {
			t.good += c.Count
		}
	}

	seeds := make([]model.Seed, 0, len(bySeed))
	for seed := range bySeed {
		seeds = append(seeds, seed)
	}
	sort.Slice(seeds, func(i, j int) bool {
		a, b := bySeed[seeds[i]], bySeed[seeds[j]]
		if a.good-a.bad != b.good-b.bad {
			return a.good-a.bad > b.good-b.bad
		}
		return seeds[i] < seeds[j]
	})

	var sb strings.Builder
	for _, seed := range seeds {
		t := bySeed[seed]
		sb.WriteString(fmt.Sprintf("• %s: +%d / −%d\n", seed.Label(), t.good, t.bad))
	}
	return sb.String()
}
