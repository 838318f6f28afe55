package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
)

func TestGoalCompleteOnTimeAndLate(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)
	ctx := context.Background()

	onTime, err := f.goals.Create(ctx, user, GoalInput{Title: "read a book", Seed: model.SeedLearning, Deadline: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	late, err := f.goals.Create(ctx, user, GoalInput{Title: "fix the bike", Deadline: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 0, onTime.Progress)

	f.clock.Advance(12 * time.Hour)
	view, err := f.goals.Get(ctx, user, onTime.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Progress)

	view, err = f.goals.Complete(ctx, user, onTime.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, view.Obligation.Status)
	require.NotNil(t, view.Goal.CompletedAt)

	f.clock.Advance(13 * time.Hour)
	res, err := f.reconcile.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	view, err = f.goals.Get(ctx, user, late.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOverdue, view.Obligation.Status)
	assert.True(t, view.Overdue)

	view, err = f.goals.Complete(ctx, user, late.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOverdueCompleted, view.Obligation.Status)

	_, err = f.goals.Complete(ctx, user, late.Goal.ID)
	assert.ErrorIs(t, err, lifecycle.ErrObligationClosed)

	open, err := f.goals.ListOpen(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestGoalAbandonRestoreReschedule(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)
	ctx := context.Background()

	goal, err := f.goals.Create(ctx, user, GoalInput{Title: "learn to juggle", Deadline: base.Add(48 * time.Hour)})
	require.NoError(t, err)

	moved, err := f.goals.Reschedule(ctx, user, goal.Goal.ID, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.True(t, moved.Goal.Deadline.Equal(base.Add(72*time.Hour)))

	_, err = f.goals.Reschedule(ctx, user, goal.Goal.ID, base.Add(-time.Hour))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidDeadline)

	abandoned, err := f.goals.Abandon(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAbandoned, abandoned.Obligation.Status)

	_, err = f.goals.Reschedule(ctx, user, goal.Goal.ID, base.Add(96*time.Hour))
	assert.ErrorIs(t, err, lifecycle.ErrDeadlineLocked)

	list, err := f.goals.ListAbandoned(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)

	restored, err := f.goals.Restore(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInProgress, restored.Obligation.Status)

	stored, err := f.goals.Get(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.True(t, stored.Goal.Deadline.Equal(base.Add(72*time.Hour)))
}

func TestGoalCreateValidation(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)

	_, err := f.goals.Create(context.Background(), user, GoalInput{Title: "", Deadline: base.Add(time.Hour)})
	assert.Error(t, err)

	_, err = f.goals.Create(context.Background(), user, GoalInput{Title: "past", Deadline: base.Add(-time.Hour)})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidDeadline)
}

func TestSweepDoesNotUndoReschedule(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)
	ctx := context.Background()

	goal, err := f.goals.Create(ctx, user, GoalInput{Title: "write the report", Deadline: base.Add(25 * time.Hour)})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	loaded, err := f.store.LoadActiveObligations(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	moved, err := f.goals.Reschedule(ctx, user, goal.Goal.ID, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInProgress, moved.Obligation.Status)

	changed := lifecycle.Reconcile(loaded, base.Add(27*time.Hour))
	require.Len(t, changed, 1)
	ok, err := f.store.Save(ctx, changed[0], lifecycle.StatusInProgress)
	require.NoError(t, err)
	assert.False(t, ok, "stale sweep must lose to the reschedule")

	stored, err := f.goals.Get(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInProgress, stored.Obligation.Status)
	assert.True(t, stored.Goal.Deadline.Equal(base.Add(72*time.Hour)))
}

func TestGoalPastDeadlineIsAdvancedBeforeActions(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 1)
	ctx := context.Background()

	goal, err := f.goals.Create(ctx, user, GoalInput{Title: "paint the fence", Deadline: base.Add(time.Hour)})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	view, err := f.goals.Reschedule(ctx, user, goal.Goal.ID, base.Add(48*time.Hour))
	require.ErrorIs(t, err, lifecycle.ErrDeadlineLocked)
	assert.Equal(t, lifecycle.StatusOverdue, view.Obligation.Status)

	stored, err := f.goals.Get(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOverdue, stored.Obligation.Status, "overdue transition is persisted")
	assert.True(t, stored.Goal.Deadline.Equal(base.Add(time.Hour)))

	done, err := f.goals.Complete(ctx, user, goal.Goal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOverdueCompleted, done.Obligation.Status)
}
