package engine

import "time"

// BackoffStrategy computes the delay before the next delivery attempt.
// Attempt starts at 1 for the first retry.
type BackoffStrategy interface {
	NextInterval(attempt int) time.Duration
}

// LinearBackoff increases the delay linearly with the attempt number.
// Formula: min(Interval * attempt, MaxInterval).
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = time.Second
	}
	max := l.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if delay > max {
		delay = max
	}
	return delay
}

// FixedBackoff returns a constant delay between attempts.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy spaces retries five minutes apart per attempt
// already made, capped at one hour.
func DefaultBackoffStrategy() BackoffStrategy {
	return LinearBackoff{
		Interval:    5 * time.Minute,
		MaxInterval: time.Hour,
	}
}
