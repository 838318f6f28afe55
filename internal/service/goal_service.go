package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
	"seeding/internal/repository"
)

// GoalInput represents data required to create a goal.
type GoalInput struct {
	Title       string
	Description string
	Seed        model.Seed
	Deadline    time.Time
}

// GoalView pairs a stored goal with its lifecycle state and progress at the time it was loaded.
type GoalView struct {
	Goal       model.Goal
	Obligation lifecycle.Obligation
	Progress   int
	Overdue    bool
}

// GoalService wraps goal-related business logic.
type GoalService struct {
	repo  *repository.GoalRepository
	clock lifecycle.Clock
	log   *zap.Logger
}

func NewGoalService(repo *repository.GoalRepository, clock lifecycle.Clock, log *zap.Logger) *GoalService {
	return &GoalService{repo: repo, clock: clock, log: log}
}

func (s *GoalService) Create(ctx context.Context, user *model.User, input GoalInput) (GoalView, error) {
	title := cleanText(input.Title)
	if title == "" {
		return GoalView{}, fmt.Errorf("title is required")
	}

	now := s.clock.Now()
	o, err := lifecycle.NewGoal(now, input.Deadline)
	if err != nil {
		return GoalView{}, err
	}
	row := repository.NewGoalRow(user.ID, title, cleanText(input.Description), input.Seed, o)
	if err := s.repo.Create(ctx, &row); err != nil {
		return GoalView{}, err
	}
	s.log.Info("goal created", zap.Uint("user", user.ID), zap.String("goal", row.ID), zap.Time("deadline", row.Deadline))
	return newGoalView(row, o, now), nil
}

// ListOpen returns in-progress and overdue goals.
func (s *GoalService) ListOpen(ctx context.Context, user *model.User) ([]GoalView, error) {
	return s.list(ctx, user, lifecycle.StatusInProgress, lifecycle.StatusOverdue)
}

// ListAbandoned returns goals that can be restored.
func (s *GoalService) ListAbandoned(ctx context.Context, user *model.User) ([]GoalView, error) {
	return s.list(ctx, user, lifecycle.StatusAbandoned)
}

func (s *GoalService) list(ctx context.Context, user *model.User, statuses ...lifecycle.Status) ([]GoalView, error) {
	rows, err := s.repo.ListByStatus(ctx, user.ID, statuses...)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	views := make([]GoalView, 0, len(rows))
	for _, row := range rows {
		o, err := repository.GoalObligation(row)
		if err != nil {
			return nil, err
		}
		views = append(views, newGoalView(row, o, now))
	}
	return views, nil
}

func (s *GoalService) Get(ctx context.Context, user *model.User, ref string) (GoalView, error) {
	row, err := s.repo.FindByRef(ctx, user.ID, ref)
	if err != nil {
		return GoalView{}, err
	}
	o, err := repository.GoalObligation(*row)
	if err != nil {
		return GoalView{}, err
	}
	return newGoalView(*row, o, s.clock.Now()), nil
}

// Complete closes the goal as completed or overdue-completed depending on
// whether the deadline has passed now.
func (s *GoalService) Complete(ctx context.Context, user *model.User, ref string) (GoalView, error) {
	return s.transition(ctx, user, ref, "goal completed", func(o lifecycle.Obligation, now time.Time) (lifecycle.Obligation, error) {
		return lifecycle.Complete(o, now)
	})
}

func (s *GoalService) Abandon(ctx context.Context, user *model.User, ref string) (GoalView, error) {
	return s.transition(ctx, user, ref, "goal abandoned", func(o lifecycle.Obligation, _ time.Time) (lifecycle.Obligation, error) {
		return lifecycle.Abandon(o)
	})
}

func (s *GoalService) Restore(ctx context.Context, user *model.User, ref string) (GoalView, error) {
	return s.transition(ctx, user, ref, "goal restored", func(o lifecycle.Obligation, _ time.Time) (lifecycle.Obligation, error) {
		return lifecycle.Restore(o)
	})
}

// Reschedule moves the deadline of an in-progress goal.
func (s *GoalService) Reschedule(ctx context.Context, user *model.User, ref string, deadline time.Time) (GoalView, error) {
	return s.transition(ctx, user, ref, "goal rescheduled", func(o lifecycle.Obligation, _ time.Time) (lifecycle.Obligation, error) {
		return lifecycle.Reschedule(o, deadline)
	})
}

// transition applies a user action to the stored goal. A goal whose deadline
// has passed is first moved to overdue, as a sweep at this instant would.
func (s *GoalService) transition(ctx context.Context, user *model.User, ref, event string, apply func(lifecycle.Obligation, time.Time) (lifecycle.Obligation, error)) (GoalView, error) {
	view, err := s.Get(ctx, user, ref)
	if err != nil {
		return view, err
	}

	now := s.clock.Now()
	stored := view.Obligation
	current, advanced := lifecycle.Advance(stored, now)
	next, err := apply(current, now)
	if err != nil {
		if advanced {
			s.persist(ctx, current, stored)
			repository.ApplyGoal(&view.Goal, current)
			view = newGoalView(view.Goal, current, now)
		}
		return view, err
	}

	ok, err := s.repo.Update(ctx, next, stored)
	if err != nil {
		return view, err
	}
	if !ok {
		return view, ErrConflict
	}

	repository.ApplyGoal(&view.Goal, next)
	s.log.Info(event,
		zap.Uint("user", user.ID),
		zap.String("goal", next.ID),
		zap.Stringer("from", stored.Status),
		zap.Stringer("to", next.Status))
	return newGoalView(view.Goal, next, now), nil
}

// persist records a time-based transition noticed outside a sweep.
func (s *GoalService) persist(ctx context.Context, o, stored lifecycle.Obligation) {
	if _, err := s.repo.Update(ctx, o, stored); err != nil {
		s.log.Warn("persist reconciled goal", zap.String("goal", o.ID), zap.Error(err))
	}
}

func newGoalView(row model.Goal, o lifecycle.Obligation, now time.Time) GoalView {
	progress, overdue := lifecycle.Progress(o.CreatedAt, o.Deadline, now)
	return GoalView{Goal: row, Obligation: o, Progress: progress, Overdue: overdue}
}
