// Package retry holds the shared send-retry bookkeeping used by the punch
// state machines.
//
// Everything here is passive: a Schedule never sleeps or looks at a clock,
// it only answers questions about instants the caller hands in.
package retry

import "time"

// Schedule tracks a bounded retry discipline for one message stream: when
// the next send is due, how many sends have happened, and a capped doubling
// backoff between them.
//
// The zero value of the tracking fields is ready for use; the first Due is
// always immediate.
type Schedule struct {
	// Interval is the gap after the first send.
	Interval time.Duration

	// MaxInterval caps the backoff. If it is not above Interval, the
	// schedule stays at a fixed interval.
	MaxInterval time.Duration

	// MaxAttempts bounds the total sends; zero means unbounded.
	MaxAttempts int

	attempts int
	nextAt   time.Time
}

// Due reports whether a send is due at now.
func (s *Schedule) Due(now time.Time) bool {
	return !now.Before(s.nextAt)
}

// Sent records a send at now and schedules the next one.
func (s *Schedule) Sent(now time.Time) {
	s.attempts++
	s.nextAt = now.Add(s.delay())
}

// Exhausted reports whether the attempts budget is spent.
func (s *Schedule) Exhausted() bool {
	return s.MaxAttempts > 0 && s.attempts >= s.MaxAttempts
}

// Attempts returns how many sends have been recorded.
func (s *Schedule) Attempts() int {
	return s.attempts
}

// Reset clears all progress; the next Due is immediate again.
func (s *Schedule) Reset() {
	s.attempts = 0
	s.nextAt = time.Time{}
}

func (s *Schedule) delay() time.Duration {
	d := s.Interval
	if s.MaxInterval <= s.Interval {
		return d
	}

	// Doubles once per recorded send, so attempt n waits Interval*2^(n-1),
	// clamped to MaxInterval.
	for i := 1; i < s.attempts && d < s.MaxInterval; i++ {
		d *= 2
	}

	return min(d, s.MaxInterval)
}
