package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the wait after a failed attempt (attempt is zero-based).
type Backoff interface {
	Delay(attempt uint) time.Duration
}

// ConstBackoff waits the same duration after every failure.
type ConstBackoff time.Duration

func (b ConstBackoff) Delay(uint) time.Duration {
	return time.Duration(b)
}

// ExpBackoff grows the delay as Base * Factor^attempt, clamped to [Base, Max].
//
//	ExpBackoff{Base: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2}
//	// 100ms, 200ms, 400ms, ... 6.4s, 10s, 10s
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExpBackoff) Delay(attempt uint) time.Duration {
	f := float64(b.Base) * math.Pow(b.Factor, float64(attempt))

	d := time.Duration(f)
	if d < b.Base {
		return b.Base
	} else if d > b.Max {
		return b.Max
	}

	return d
}

// Jitter is the share of each delay that is randomized. 1.0 picks uniformly
// in [0, delay), 0.5 keeps half of the delay fixed, negative values disable
// jitter.
type Jitter float64

const (
	EqualJitter   Jitter = 0.5
	FullJitter    Jitter = 1.0
	WithoutJitter Jitter = -1.0
)

func (j Jitter) jitter(d time.Duration) time.Duration {
	if j <= 0.0 {
		return d
	}

	//nolint:gosec // G404: jitter does not need a cryptographic source
	r := rand.Float64() * float64(d)

	if j < 1.0 {
		r = float64(j)*r + float64(1.0-j)*float64(d)
	}

	return time.Duration(r)
}
