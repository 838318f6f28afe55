package repository

import (
	"context"
	"fmt"

	"seeding/internal/lifecycle"
)

// ObligationStore exposes commitments and goals as lifecycle obligations.
type ObligationStore struct {
	commitments *CommitmentRepository
	goals       *GoalRepository
}

func NewObligationStore(commitments *CommitmentRepository, goals *GoalRepository) *ObligationStore {
	return &ObligationStore{commitments: commitments, goals: goals}
}

// LoadActiveObligations returns the user's obligations that a time-based
// transition can still move: pending commitments and in-progress goals.
func (s *ObligationStore) LoadActiveObligations(ctx context.Context, userID uint) ([]lifecycle.Obligation, error) {
	commitments, err := s.commitments.ListByStatus(ctx, userID, lifecycle.StatusPending)
	if err != nil {
		return nil, err
	}
	goals, err := s.goals.ListByStatus(ctx, userID, lifecycle.StatusInProgress)
	if err != nil {
		return nil, err
	}

	out := make([]lifecycle.Obligation, 0, len(commitments)+len(goals))
	for _, c := range commitments {
		o, err := CommitmentObligation(c)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	for _, g := range goals {
		o, err := GoalObligation(g)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Save persists o if its stored status still equals previous. Goals must also
// still carry o's deadline, so a sweep never overwrites a reschedule made after
// the goal was loaded. A false result with a nil error means another writer got
// there first.
func (s *ObligationStore) Save(ctx context.Context, o lifecycle.Obligation, previous lifecycle.Status) (bool, error) {
	switch o.Kind {
	case lifecycle.KindCommitment:
		return s.commitments.UpdateStatus(ctx, o, previous)
	case lifecycle.KindGoal:
		loaded := o
		loaded.Status = previous
		return s.goals.Update(ctx, o, loaded)
	default:
		return false, fmt.Errorf("save obligation %s: unknown kind %d", o.ID, o.Kind)
	}
}
