package lifecycle

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func TestCommitmentLifecycle(t *testing.T) {
	c, err := NewCommitment(ms(0), ms(900_000))
	require.NoError(t, err)
	require.Equal(t, StatusPending, c.Status)
	require.NotEmpty(t, c.ID)

	assert.Empty(t, Reconcile([]Obligation{c}, ms(500_000)), "still before deadline")

	changed := Reconcile([]Obligation{c}, ms(1_000_000))
	require.Len(t, changed, 1)
	assert.Equal(t, StatusUnfulfilled, changed[0].Status)
	assert.Equal(t, StatusPending, c.Status, "input must not be mutated")

	unfulfilled := changed[0]

	t.Run("fulfilled within grace", func(t *testing.T) {
		got, err := Fulfill(unfulfilled, ms(1_000_000))
		require.NoError(t, err)
		assert.Equal(t, StatusFulfilled, got.Status)
		require.NotNil(t, got.ResolvedAt)
		assert.True(t, got.ResolvedAt.Equal(ms(1_000_000)))
	})

	t.Run("closed after grace", func(t *testing.T) {
		late := ms(900_000 + 12*3600*1000 + 1)
		got, err := Fulfill(unfulfilled, late)
		require.ErrorIs(t, err, ErrObligationClosed)
		if diff := cmp.Diff(unfulfilled, got); diff != "" {
			t.Fatalf("obligation changed on failure (-want +got):\n%s", diff)
		}
		assert.False(t, got.IsActive(late))
		assert.Equal(t, StatusUnfulfilled, got.Status)
	})

	t.Run("grace boundary is exclusive", func(t *testing.T) {
		_, err := Fulfill(unfulfilled, ms(900_000).Add(GracePeriod))
		require.ErrorIs(t, err, ErrObligationClosed)
		_, err = Fulfill(unfulfilled, ms(900_000).Add(GracePeriod-time.Millisecond))
		require.NoError(t, err)
	})

	t.Run("pending ignores grace", func(t *testing.T) {
		got, err := Fulfill(c, ms(900_000).Add(48*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusFulfilled, got.Status)
	})

	t.Run("fulfilled is terminal", func(t *testing.T) {
		done, err := Fulfill(c, ms(1))
		require.NoError(t, err)
		_, err = Fulfill(done, ms(2))
		require.ErrorIs(t, err, ErrObligationClosed)
		assert.Empty(t, Reconcile([]Obligation{done}, ms(10_000_000)))
	})
}

func TestCommitmentRejectsGoalOperations(t *testing.T) {
	c, err := NewCommitment(ms(0), ms(1000))
	require.NoError(t, err)

	_, err = Complete(c, ms(10))
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = Abandon(c)
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = Reschedule(c, ms(5000))
	assert.ErrorIs(t, err, ErrDeadlineLocked)
}

func TestGoalLifecycle(t *testing.T) {
	g, err := NewGoal(ms(0), ms(86_400_000))
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, g.Status)

	t.Run("completed on time", func(t *testing.T) {
		got, err := Complete(g, ms(50_000_000))
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})

	t.Run("completed late", func(t *testing.T) {
		got, err := Complete(g, ms(90_000_000))
		require.NoError(t, err)
		assert.Equal(t, StatusOverdueCompleted, got.Status)
	})

	t.Run("overdue then completed at boundary", func(t *testing.T) {
		overdue := g
		overdue.Status = StatusOverdue
		got, err := Complete(overdue, ms(86_400_000))
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})

	t.Run("reconcile marks overdue", func(t *testing.T) {
		changed := Reconcile([]Obligation{g}, ms(86_400_001))
		require.Len(t, changed, 1)
		assert.Equal(t, StatusOverdue, changed[0].Status)
		assert.True(t, changed[0].IsActive(ms(86_400_001)))

		got, err := Complete(changed[0], ms(90_000_000))
		require.NoError(t, err)
		assert.Equal(t, StatusOverdueCompleted, got.Status)
	})

	t.Run("abandon and restore", func(t *testing.T) {
		abandoned, err := Abandon(g)
		require.NoError(t, err)
		assert.Equal(t, StatusAbandoned, abandoned.Status)
		assert.False(t, abandoned.IsActive(ms(1)))

		_, err = Complete(abandoned, ms(1))
		require.ErrorIs(t, err, ErrObligationClosed)
		_, err = Abandon(abandoned)
		require.ErrorIs(t, err, ErrObligationClosed)

		restored, err := Restore(abandoned)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, restored.Status)

		_, err = Restore(restored)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		done, err := Complete(g, ms(1))
		require.NoError(t, err)
		_, err = Complete(done, ms(2))
		require.ErrorIs(t, err, ErrObligationClosed)
		_, err = Abandon(done)
		require.ErrorIs(t, err, ErrObligationClosed)
		_, err = Fulfill(done, ms(2))
		require.ErrorIs(t, err, ErrWrongKind)
	})
}

func TestReschedule(t *testing.T) {
	g, err := NewGoal(ms(1000), ms(5000))
	require.NoError(t, err)

	moved, err := Reschedule(g, ms(9000))
	require.NoError(t, err)
	assert.True(t, moved.Deadline.Equal(ms(9000)))

	_, err = Reschedule(g, ms(500))
	assert.ErrorIs(t, err, ErrInvalidDeadline)

	overdue := g
	overdue.Status = StatusOverdue
	_, err = Reschedule(overdue, ms(9000))
	assert.ErrorIs(t, err, ErrDeadlineLocked)
}

func TestNewRejectsDeadlineBeforeCreation(t *testing.T) {
	_, err := NewCommitment(ms(1000), ms(999))
	assert.ErrorIs(t, err, ErrInvalidDeadline)

	g, err := NewGoal(ms(1000), ms(1000))
	require.NoError(t, err)
	assert.Equal(t, KindGoal, g.Kind)
}

func TestProgress(t *testing.T) {
	cases := []struct {
		name        string
		created     int64
		deadline    int64
		now         int64
		wantPercent int
		wantOverdue bool
	}{
		{"start", 0, 1000, 0, 0, false},
		{"half", 0, 1000, 500, 50, false},
		{"past deadline", 0, 1000, 1500, 100, true},
		{"at deadline", 0, 1000, 1000, 100, true},
		{"zero window", 1000, 1000, 500, 50, false},
		{"before creation", 1000, 2000, 0, 0, false},
		{"rounds half up", 0, 1000, 5, 1, false},
		{"rounds down", 0, 1000, 4, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			percent, overdue := Progress(ms(tc.created), ms(tc.deadline), ms(tc.now))
			assert.Equal(t, tc.wantPercent, percent)
			assert.Equal(t, tc.wantOverdue, overdue)
		})
	}
}

func TestGraceRemaining(t *testing.T) {
	c, err := NewCommitment(ms(0), ms(1000))
	require.NoError(t, err)
	assert.Zero(t, c.GraceRemaining(ms(2000)), "pending commitments have no grace countdown")

	c.Status = StatusUnfulfilled
	assert.Equal(t, GracePeriod-time.Second, c.GraceRemaining(ms(2000)))
	assert.Zero(t, c.GraceRemaining(ms(1000).Add(GracePeriod+time.Second)))
}

func TestIsActive(t *testing.T) {
	c, err := NewCommitment(ms(0), ms(1000))
	require.NoError(t, err)
	assert.True(t, c.IsActive(ms(5000)), "pending stays active until reconciled")

	c.Status = StatusUnfulfilled
	assert.True(t, c.IsActive(ms(1000).Add(time.Hour)))
	assert.False(t, c.IsActive(ms(1000).Add(GracePeriod)))

	c.Status = StatusFulfilled
	assert.False(t, c.IsActive(ms(10)))

	c.Status = StatusExpired
	assert.False(t, c.IsActive(ms(10)))
	assert.True(t, c.Terminal())
}
