package lifecycle

import (
	"math"
	"time"
)

// Reconcile applies the time-based transitions to every obligation and
// returns only the ones whose status changed. The input slice is not modified.
func Reconcile(obligations []Obligation, now time.Time) []Obligation {
	var changed []Obligation
	for _, o := range obligations {
		if next, ok := Advance(o, now); ok {
			changed = append(changed, next)
		}
	}
	return changed
}

// Advance applies the time-based transition to a single obligation.
func Advance(o Obligation, now time.Time) (Obligation, bool) {
	if !now.After(o.Deadline) {
		return o, false
	}
	switch {
	case o.Kind == KindCommitment && o.Status == StatusPending:
		o.Status = StatusUnfulfilled
		return o, true
	case o.Kind == KindGoal && o.Status == StatusInProgress:
		o.Status = StatusOverdue
		return o, true
	default:
		return o, false
	}
}

// Progress returns how far now is between createdAt and deadline as a
// percentage in [0, 100], and whether the deadline has been reached.
func Progress(createdAt, deadline, now time.Time) (int, bool) {
	if !now.Before(deadline) {
		return 100, true
	}
	if deadline.Equal(createdAt) {
		return 50, false
	}
	ratio := float64(now.Sub(createdAt)) / float64(deadline.Sub(createdAt))
	percent := int(math.Round(100 * ratio))
	return min(max(percent, 0), 100), false
}
