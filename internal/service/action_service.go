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

// ActionInput represents data required to log an action.
type ActionInput struct {
	Title    string
	Polarity model.Polarity
	Seed     model.Seed
	// Remedy is what the user commits to after a negative action. Empty means no commitment.
	Remedy string
	// Window overrides the default time allowed to keep the commitment.
	Window time.Duration
}

// ActionService logs actions and turns negative ones into commitments.
type ActionService struct {
	actions *repository.ActionRepository
	clock   lifecycle.Clock
	window  time.Duration
	log     *zap.Logger
}

func NewActionService(actions *repository.ActionRepository, clock lifecycle.Clock, window time.Duration, log *zap.Logger) *ActionService {
	return &ActionService{actions: actions, clock: clock, window: window, log: log}
}

// Log stores the action. For a negative action with a remedy it also creates
// a pending commitment due after the window; the commitment is nil otherwise.
func (s *ActionService) Log(ctx context.Context, user *model.User, input ActionInput) (*model.Action, *model.Commitment, error) {
	title := cleanText(input.Title)
	if title == "" {
		return nil, nil, fmt.Errorf("title is required")
	}
	if input.Polarity != model.PolarityPositive && input.Polarity != model.PolarityNegative {
		return nil, nil, fmt.Errorf("polarity is required")
	}

	now := s.clock.Now()
	action := model.Action{
		UserID:    user.ID,
		Title:     title,
		Polarity:  input.Polarity,
		Seed:      input.Seed,
		CreatedAt: now,
	}

	remedy := cleanText(input.Remedy)
	if input.Polarity == model.PolarityPositive || remedy == "" {
		if err := s.actions.Create(ctx, &action); err != nil {
			return nil, nil, err
		}
		s.log.Info("action logged", zap.Uint("user", user.ID), zap.Uint("action", action.ID), zap.String("polarity", string(action.Polarity)))
		return &action, nil, nil
	}

	window := input.Window
	if window <= 0 {
		window = s.window
	}
	o, err := lifecycle.NewCommitment(now, now.Add(window))
	if err != nil {
		return nil, nil, err
	}
	commitment := repository.NewCommitmentRow(user.ID, nil, remedy, o)
	if err := s.actions.CreateWithCommitment(ctx, &action, &commitment); err != nil {
		return nil, nil, err
	}
	s.log.Info("action logged with commitment",
		zap.Uint("user", user.ID),
		zap.Uint("action", action.ID),
		zap.String("commitment", commitment.ID),
		zap.Time("deadline", commitment.Deadline))
	return &action, &commitment, nil
}

// SeedTally counts the user's actions per seed over the trailing period.
func (s *ActionService) SeedTally(ctx context.Context, user *model.User, period time.Duration) ([]repository.SeedCount, error) {
	return s.actions.SeedTally(ctx, user.ID, s.clock.Now().Add(-period))
}

// Recent lists the user's actions over the trailing period, newest first.
func (s *ActionService) Recent(ctx context.Context, user *model.User, period time.Duration) ([]model.Action, error) {
	return s.actions.ListSince(ctx, user.ID, s.clock.Now().Add(-period))
}
