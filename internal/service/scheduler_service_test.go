package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("07:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 7 * * *", spec)

	for _, bad := range []string{"7", "24:00", "10:60", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	spec, err := buildIntervalSpec(90 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "@every 90s", spec)

	spec, err = buildIntervalSpec(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = buildIntervalSpec(0)
	assert.Error(t, err)
}

func TestSchedulerRunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewSchedulerService(time.UTC)
	var runs atomic.Int32
	id, err := s.ScheduleInterval(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)
	_, err = s.ScheduleDaily("03:00", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	_, err = s.Reschedule(id, 2*time.Second, func() { runs.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()
}
