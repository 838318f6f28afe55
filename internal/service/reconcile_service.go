package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
)

// ObligationStore is the persistence side of a reconciliation pass.
type ObligationStore interface {
	LoadActiveObligations(ctx context.Context, userID uint) ([]lifecycle.Obligation, error)
	Save(ctx context.Context, o lifecycle.Obligation, previous lifecycle.Status) (bool, error)
}

// UserLister lists every user whose obligations should be swept.
type UserLister interface {
	ListAll(ctx context.Context) ([]model.User, error)
}

// SweepResult summarises one reconciliation pass.
type SweepResult struct {
	Users     int
	Changed   int
	Conflicts int
}

func (r *SweepResult) add(o SweepResult) {
	r.Users += o.Users
	r.Changed += o.Changed
	r.Conflicts += o.Conflicts
}

// ReconcileService applies time-based transitions to stored obligations.
type ReconcileService struct {
	users       UserLister
	store       ObligationStore
	clock       lifecycle.Clock
	parallelism int
	log         *zap.Logger
}

func NewReconcileService(users UserLister, store ObligationStore, clock lifecycle.Clock, parallelism int, log *zap.Logger) *ReconcileService {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ReconcileService{users: users, store: store, clock: clock, parallelism: parallelism, log: log}
}

// Sweep reconciles every user against a single reading of the clock.
func (s *ReconcileService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		mu    sync.Mutex
		total SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, user := range users {
		userID := user.ID
		g.Go(func() error {
			res, err := s.sweepUser(gctx, userID, now)
			if err != nil {
				return fmt.Errorf("sweep user %d: %w", userID, err)
			}
			mu.Lock()
			total.add(res)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	if total.Changed > 0 || total.Conflicts > 0 {
		s.log.Info("reconciliation pass",
			zap.Int("users", total.Users),
			zap.Int("changed", total.Changed),
			zap.Int("conflicts", total.Conflicts))
	}
	return total, err
}

// SweepUser reconciles one user's obligations.
func (s *ReconcileService) SweepUser(ctx context.Context, userID uint) (SweepResult, error) {
	return s.sweepUser(ctx, userID, s.clock.Now())
}

func (s *ReconcileService) sweepUser(ctx context.Context, userID uint, now time.Time) (SweepResult, error) {
	res := SweepResult{Users: 1}
	candidates, err := s.store.LoadActiveObligations(ctx, userID)
	if err != nil {
		return res, err
	}

	previous := make(map[string]lifecycle.Status, len(candidates))
	for _, o := range candidates {
		previous[o.ID] = o.Status
	}

	for _, o := range lifecycle.Reconcile(candidates, now) {
		ok, err := s.store.Save(ctx, o, previous[o.ID])
		if err != nil {
			return res, err
		}
		if !ok {
			res.Conflicts++
			s.log.Debug("obligation changed during sweep", zap.Uint("user", userID), zap.String("id", o.ID))
			continue
		}
		res.Changed++
		s.log.Debug("obligation reconciled",
			zap.Uint("user", userID),
			zap.String("id", o.ID),
			zap.Stringer("kind", o.Kind),
			zap.Stringer("status", o.Status))
	}
	return res, nil
}
