package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleBackoffMonotonic(t *testing.T) {
	sched := newSchedule(30*time.Second, 1.5, 3600*time.Second)

	assert.Equal(t, 30*time.Second, sched.Interval())

	sched.Backoff()
	assert.Equal(t, 45*time.Second, sched.Interval())

	sched.Backoff()
	assert.Equal(t, 67500*time.Millisecond, sched.Interval())

	previous := sched.Interval()
	for i := 0; i < 50; i++ {
		sched.Backoff()
		assert.GreaterOrEqual(t, sched.Interval(), previous)
		assert.LessOrEqual(t, sched.Interval(), 3600*time.Second)
		previous = sched.Interval()
	}
	assert.Equal(t, 3600*time.Second, sched.Interval())
}

func TestScheduleResetOnActivity(t *testing.T) {
	sched := newSchedule(30*time.Second, 1.5, 3600*time.Second)

	sched.Backoff()
	sched.Backoff()
	assert.NotEqual(t, 30*time.Second, sched.Interval())

	sched.Reset()
	assert.Equal(t, 30*time.Second, sched.Interval())

	// Back-off growth restarts from base after a reset.
	sched.Backoff()
	assert.Equal(t, 45*time.Second, sched.Interval())
}

func TestScheduleNoFalloffStaysConstant(t *testing.T) {
	sched := newSchedule(30*time.Second, 0, 3600*time.Second)

	for i := 0; i < 10; i++ {
		sched.Backoff()
	}
	assert.Equal(t, 30*time.Second, sched.Interval())
}

func TestScheduleDefaults(t *testing.T) {
	sched := newSchedule(0, 0, 0)
	assert.Greater(t, sched.Interval(), time.Duration(0))
}
