package tracker

import (
	"math"
	"time"
)

// Backoff maps a consecutive-failure count to the wait before the next try.
type Backoff interface {
	Next(failures int) time.Duration
}

// Linear waits Start + Increment*min(failures, MaxStacks).
type Linear struct {
	Start     time.Duration
	Increment time.Duration
	MaxStacks int
}

func (b Linear) Next(failures int) time.Duration {
	return b.Start + b.Increment*time.Duration(stacks(failures, b.MaxStacks))
}

// Exponential waits Start + Increment*floor(min(failures, MaxStacks)^Power).
type Exponential struct {
	Start     time.Duration
	Increment time.Duration
	Power     float64
	MaxStacks int
}

func (b Exponential) Next(failures int) time.Duration {
	n := math.Floor(math.Pow(float64(stacks(failures, b.MaxStacks)), b.Power))
	return b.Start + b.Increment*time.Duration(n)
}

// DefaultBackoff is 5s growing by 5s per failure, capped at 55s.
func DefaultBackoff() Backoff {
	return Linear{Start: 5 * time.Second, Increment: 5 * time.Second, MaxStacks: 10}
}

func stacks(failures, limit int) int {
	if failures < 0 {
		return 0
	}
	if limit >= 0 && failures > limit {
		return limit
	}
	return failures
}
