package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
	"seeding/internal/repository"
)

// CommitmentView pairs a stored commitment with its lifecycle state.
type CommitmentView struct {
	Commitment model.Commitment
	Obligation lifecycle.Obligation
}

// Fulfillable reports whether Fulfill would accept the commitment at now,
// treating a pending row past its deadline as already unfulfilled.
func (v CommitmentView) Fulfillable(now time.Time) bool {
	current, _ := lifecycle.Advance(v.Obligation, now)
	return lifecycle.CanFulfill(current, now)
}

// CommitmentService wraps commitment-related business logic.
type CommitmentService struct {
	repo  *repository.CommitmentRepository
	clock lifecycle.Clock
	log   *zap.Logger
}

func NewCommitmentService(repo *repository.CommitmentRepository, clock lifecycle.Clock, log *zap.Logger) *CommitmentService {
	return &CommitmentService{repo: repo, clock: clock, log: log}
}

// ListActive returns commitments that are pending or still inside their grace window.
func (s *CommitmentService) ListActive(ctx context.Context, user *model.User) ([]CommitmentView, error) {
	rows, err := s.repo.ListByStatus(ctx, user.ID, lifecycle.StatusPending, lifecycle.StatusUnfulfilled)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	views := make([]CommitmentView, 0, len(rows))
	for _, row := range rows {
		o, err := repository.CommitmentObligation(row)
		if err != nil {
			return nil, err
		}
		o, _ = lifecycle.Advance(o, now)
		if !o.IsActive(now) {
			continue
		}
		repository.ApplyCommitment(&row, o)
		views = append(views, CommitmentView{Commitment: row, Obligation: o})
	}
	return views, nil
}

func (s *CommitmentService) Get(ctx context.Context, user *model.User, ref string) (CommitmentView, error) {
	row, err := s.repo.FindByRef(ctx, user.ID, ref)
	if err != nil {
		return CommitmentView{}, err
	}
	o, err := repository.CommitmentObligation(*row)
	if err != nil {
		return CommitmentView{}, err
	}
	return CommitmentView{Commitment: *row, Obligation: o}, nil
}

// Fulfill marks the commitment kept. A stored pending row whose deadline has
// passed is first moved to unfulfilled, the same as a sweep at this instant
// would do, so late fulfilment is judged against the grace window.
func (s *CommitmentService) Fulfill(ctx context.Context, user *model.User, ref string) (CommitmentView, error) {
	view, err := s.Get(ctx, user, ref)
	if err != nil {
		return view, err
	}

	now := s.clock.Now()
	previous := view.Obligation.Status
	current, _ := lifecycle.Advance(view.Obligation, now)
	fulfilled, err := lifecycle.Fulfill(current, now)
	if err != nil {
		if current.Status != previous {
			s.persist(ctx, current, previous)
		}
		return view, err
	}

	ok, err := s.repo.UpdateStatus(ctx, fulfilled, previous)
	if err != nil {
		return view, err
	}
	if !ok {
		return view, ErrConflict
	}

	repository.ApplyCommitment(&view.Commitment, fulfilled)
	view.Obligation = fulfilled
	s.log.Info("commitment fulfilled",
		zap.Uint("user", user.ID),
		zap.String("commitment", fulfilled.ID),
		zap.Duration("late_by", max(now.Sub(fulfilled.Deadline), 0)))
	return view, nil
}

// persist records a time-based transition noticed outside a sweep.
func (s *CommitmentService) persist(ctx context.Context, o lifecycle.Obligation, previous lifecycle.Status) {
	if _, err := s.repo.UpdateStatus(ctx, o, previous); err != nil {
		s.log.Warn("persist reconciled commitment", zap.String("commitment", o.ID), zap.Error(err))
	}
}

// TimeLeft is the time until the deadline for a pending commitment, or the
// remaining grace for an unfulfilled one.
func TimeLeft(o lifecycle.Obligation, now time.Time) time.Duration {
	if o.Status == lifecycle.StatusUnfulfilled {
		return o.GraceRemaining(now)
	}
	return max(o.Deadline.Sub(now), 0)
}
