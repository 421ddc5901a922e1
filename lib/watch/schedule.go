package watch

import (
	"time"

	"github.com/phloem-dev/phloem/config"
	"github.com/phloem-dev/phloem/constants"
)

// schedule owns the adaptive polling interval for one loop: activity resets
// the interval to base, quiescent cycles grow it by the falloff factor up to
// the cap.
type schedule struct {
	base    time.Duration
	falloff float64
	max     time.Duration
	current time.Duration
}

func newSchedule(base time.Duration, falloff float64, max time.Duration) *schedule {
	if base <= 0 {
		base = constants.DefaultPollInterval
		if config.I.Watch.DefaultInterval > 0 {
			base = time.Duration(config.I.Watch.DefaultInterval) * time.Second
		}
	}
	if max <= 0 {
		max = constants.MaxPollInterval
		if config.I.Watch.MaxInterval > 0 {
			max = time.Duration(config.I.Watch.MaxInterval) * time.Second
		}
	}
	return &schedule{
		base:    base,
		falloff: falloff,
		max:     max,
		current: base,
	}
}

// Interval to sleep before the next poll cycle.
func (s *schedule) Interval() time.Duration {
	return s.current
}

// Backoff lengthens the interval after a quiescent cycle. No-op unless a
// falloff factor greater than one is configured.
func (s *schedule) Backoff() {
	if s.falloff <= 1 {
		return
	}

	next := time.Duration(float64(s.current) * s.falloff)
	if next > s.max {
		next = s.max
	}
	s.current = next
}

// Reset restores the base interval after a cycle with activity.
func (s *schedule) Reset() {
	s.current = s.base
}
