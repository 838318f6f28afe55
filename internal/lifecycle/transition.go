package lifecycle

import "time"

// Fulfill closes a commitment as kept. A pending commitment can always be
// fulfilled; an unfulfilled one only while its grace window is open.
// On failure the obligation is returned unchanged.
func Fulfill(o Obligation, now time.Time) (Obligation, error) {
	if o.Kind != KindCommitment {
		return o, ErrWrongKind
	}
	if !CanFulfill(o, now) {
		return o, ErrObligationClosed
	}
	o.Status = StatusFulfilled
	o.ResolvedAt = timePtr(now)
	return o, nil
}

// CanFulfill reports whether Fulfill would succeed at now.
func CanFulfill(o Obligation, now time.Time) bool {
	if o.Kind != KindCommitment {
		return false
	}
	switch o.Status {
	case StatusPending:
		return true
	case StatusUnfulfilled:
		return withinGrace(o.Deadline, now)
	default:
		return false
	}
}

// Complete closes a goal. The outcome depends on the deadline at call time,
// not on whether a sweep already marked the goal overdue.
func Complete(o Obligation, now time.Time) (Obligation, error) {
	if o.Kind != KindGoal {
		return o, ErrWrongKind
	}
	if o.Status != StatusInProgress && o.Status != StatusOverdue {
		return o, ErrObligationClosed
	}
	if now.After(o.Deadline) {
		o.Status = StatusOverdueCompleted
	} else {
		o.Status = StatusCompleted
	}
	o.ResolvedAt = timePtr(now)
	return o, nil
}

// Abandon gives up on an open goal.
func Abandon(o Obligation) (Obligation, error) {
	if o.Kind != KindGoal {
		return o, ErrWrongKind
	}
	if o.Status != StatusInProgress && o.Status != StatusOverdue {
		return o, ErrObligationClosed
	}
	o.Status = StatusAbandoned
	return o, nil
}

// Restore reopens an abandoned goal. The next reconciliation pass marks it
// overdue again if its deadline has passed.
func Restore(o Obligation) (Obligation, error) {
	if o.Kind != KindGoal {
		return o, ErrWrongKind
	}
	if o.Status != StatusAbandoned {
		return o, ErrInvalidTransition
	}
	o.Status = StatusInProgress
	o.ResolvedAt = nil
	return o, nil
}

// Reschedule moves a goal's deadline while the goal is still in progress.
func Reschedule(o Obligation, deadline time.Time) (Obligation, error) {
	if o.Kind != KindGoal || o.Status != StatusInProgress {
		return o, ErrDeadlineLocked
	}
	if deadline.Before(o.CreatedAt) {
		return o, ErrInvalidDeadline
	}
	o.Deadline = deadline
	return o, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
