package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
)

// GoalRepository handles CRUD for goals.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	goal.Deadline = goal.Deadline.UTC()
	goal.CreatedAt = goal.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) FindByRef(ctx context.Context, userID uint, ref string) (*model.Goal, error) {
	return findByRef[model.Goal](ctx, r.db, userID, ref)
}

// ListByStatus returns the user's goals in the given states, soonest deadline first.
func (r *GoalRepository) ListByStatus(ctx context.Context, userID uint, statuses ...lifecycle.Status) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status IN ?", userID, encodeStatuses(statuses)).
		Order("deadline ASC, created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// Update writes status, deadline and completion time if the stored row still
// has the status and deadline of previous. It reports whether the row was
// updated.
func (r *GoalRepository) Update(ctx context.Context, next, previous lifecycle.Obligation) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Goal{}).
		Where("id = ? AND status = ? AND deadline = ?", next.ID, encodeStatus(previous.Status), previous.Deadline.UTC()).
		Updates(map[string]interface{}{
			"status":       encodeStatus(next.Status),
			"deadline":     next.Deadline.UTC(),
			"completed_at": utcPtr(next.ResolvedAt),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update goal: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GoalObligation converts a stored goal into its lifecycle form.
func GoalObligation(g model.Goal) (lifecycle.Obligation, error) {
	status, err := decodeStatus(g.Status)
	if err != nil {
		return lifecycle.Obligation{}, fmt.Errorf("goal %s: %w", g.ID, err)
	}
	return lifecycle.Obligation{
		ID:         g.ID,
		Kind:       lifecycle.KindGoal,
		CreatedAt:  g.CreatedAt,
		Deadline:   g.Deadline,
		Status:     status,
		ResolvedAt: g.CompletedAt,
	}, nil
}

// NewGoalRow builds a row for a freshly created obligation.
func NewGoalRow(userID uint, title, description string, seed model.Seed, o lifecycle.Obligation) model.Goal {
	return model.Goal{
		ID:          o.ID,
		UserID:      userID,
		Title:       title,
		Description: description,
		Seed:        seed,
		Deadline:    o.Deadline,
		Status:      encodeStatus(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

// ApplyGoal copies lifecycle fields back onto a loaded row.
func ApplyGoal(g *model.Goal, o lifecycle.Obligation) {
	g.Status = encodeStatus(o.Status)
	g.Deadline = o.Deadline
	g.CompletedAt = o.ResolvedAt
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
