package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects the state machine an obligation follows.
type Kind uint8

const (
	KindCommitment Kind = iota + 1
	KindGoal
)

func (k Kind) String() string {
	switch k {
	case KindCommitment:
		return "commitment"
	case KindGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of an obligation.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusPending
	StatusFulfilled
	StatusUnfulfilled
	// StatusExpired is never assigned by a transition; rows carrying it decode
	// but are treated as closed.
	StatusExpired
	StatusAbandoned
	StatusInProgress
	StatusCompleted
	StatusOverdue
	StatusOverdueCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusFulfilled:
		return "Fulfilled"
	case StatusUnfulfilled:
		return "Unfulfilled"
	case StatusExpired:
		return "Expired"
	case StatusAbandoned:
		return "Abandoned"
	case StatusInProgress:
		return "InProgress"
	case StatusCompleted:
		return "Completed"
	case StatusOverdue:
		return "Overdue"
	case StatusOverdueCompleted:
		return "OverdueCompleted"
	default:
		return "Unknown"
	}
}

// GracePeriod is how long after its deadline a commitment may still be fulfilled.
const GracePeriod = 12 * time.Hour

// Obligation is a time-boxed commitment or goal.
type Obligation struct {
	ID         string
	Kind       Kind
	CreatedAt  time.Time
	Deadline   time.Time
	Status     Status
	ResolvedAt *time.Time
}

// NewCommitment creates a pending commitment with a fresh id.
func NewCommitment(createdAt, deadline time.Time) (Obligation, error) {
	return newObligation(KindCommitment, createdAt, deadline)
}

// NewGoal creates an in-progress goal with a fresh id.
func NewGoal(createdAt, deadline time.Time) (Obligation, error) {
	return newObligation(KindGoal, createdAt, deadline)
}

func newObligation(kind Kind, createdAt, deadline time.Time) (Obligation, error) {
	if deadline.Before(createdAt) {
		return Obligation{}, ErrInvalidDeadline
	}
	return Obligation{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: createdAt,
		Deadline:  deadline,
		Status:    initialStatus(kind),
	}, nil
}

func initialStatus(kind Kind) Status {
	if kind == KindGoal {
		return StatusInProgress
	}
	return StatusPending
}

// Terminal reports whether no transition can leave the current status.
// An unfulfilled commitment is terminal only once its grace window has passed,
// so callers that care about that case should use CanFulfill.
func (o Obligation) Terminal() bool {
	switch o.Status {
	case StatusFulfilled, StatusExpired, StatusAbandoned, StatusCompleted, StatusOverdueCompleted:
		return true
	default:
		return false
	}
}

// IsActive reports whether the obligation belongs in the primary list at now.
func (o Obligation) IsActive(now time.Time) bool {
	switch o.Kind {
	case KindCommitment:
		return o.Status == StatusPending || (o.Status == StatusUnfulfilled && withinGrace(o.Deadline, now))
	case KindGoal:
		return o.Status == StatusInProgress || o.Status == StatusOverdue
	default:
		return false
	}
}

// GraceRemaining returns how long an unfulfilled commitment can still be
// fulfilled. It is zero for anything else and once grace has run out.
func (o Obligation) GraceRemaining(now time.Time) time.Duration {
	if o.Kind != KindCommitment || o.Status != StatusUnfulfilled {
		return 0
	}
	left := GracePeriod - now.Sub(o.Deadline)
	if left < 0 {
		return 0
	}
	return left
}

func withinGrace(deadline, now time.Time) bool {
	return now.Sub(deadline) < GracePeriod
}
