// Package retry implements the engine's delay policy (backoff composed
// with jitter) and the item-level / pipeline-level error-handling
// contracts a Resilient strategy consults (§4.6).
package retry

import (
	"math/rand"
	"time"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Backoff computes the un-jittered delay before retry attempt n (1-indexed:
// attempt 1 is the delay before the first retry, after the original try
// failed).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Fixed always waits the same duration.
type Fixed struct {
	Delay_ time.Duration
}

// NewFixed validates and returns a Fixed backoff.
func NewFixed(delay time.Duration) (Fixed, error) {
	if delay <= 0 {
		return Fixed{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "fixed backoff delay must be > 0", nil)
	}
	return Fixed{Delay_: delay}, nil
}

func (f Fixed) Delay(attempt int) time.Duration { return f.Delay_ }

// Linear grows the delay by Increment per attempt, clamped at Max.
type Linear struct {
	Base      time.Duration
	Increment time.Duration
	Max       time.Duration
}

// NewLinear validates and returns a Linear backoff.
func NewLinear(base, increment, max time.Duration) (Linear, error) {
	if base <= 0 {
		return Linear{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "linear backoff base must be > 0", nil)
	}
	if max < base {
		return Linear{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "linear backoff max must be >= base", nil)
	}
	return Linear{Base: base, Increment: increment, Max: max}, nil
}

func (l Linear) Delay(attempt int) time.Duration {
	d := l.Base + time.Duration(attempt-1)*l.Increment
	if d > l.Max {
		return l.Max
	}
	return d
}

// Exponential grows the delay by Multiplier per attempt, clamped at Max.
type Exponential struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// NewExponential validates and returns an Exponential backoff.
func NewExponential(base time.Duration, multiplier float64, max time.Duration) (Exponential, error) {
	if base <= 0 {
		return Exponential{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "exponential backoff base must be > 0", nil)
	}
	if multiplier < 1 {
		return Exponential{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "exponential backoff multiplier must be >= 1", nil)
	}
	if max < base {
		return Exponential{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "exponential backoff max must be >= base", nil)
	}
	return Exponential{Base: base, Multiplier: multiplier, Max: max}, nil
}

func (e Exponential) Delay(attempt int) time.Duration {
	d := float64(e.Base)
	for i := 1; i < attempt; i++ {
		d *= e.Multiplier
		if time.Duration(d) > e.Max {
			return e.Max
		}
	}
	result := time.Duration(d)
	if result > e.Max {
		return e.Max
	}
	return result
}

// Jitter perturbs a backoff's computed delay.
type Jitter func(base Backoff, attempt int, prev time.Duration) time.Duration

// NoJitter returns the backoff's delay unmodified.
func NoJitter(base Backoff, attempt int, prev time.Duration) time.Duration {
	return base.Delay(attempt)
}

// FullJitter picks uniformly in [0, delay).
func FullJitter(base Backoff, attempt int, prev time.Duration) time.Duration {
	d := base.Delay(attempt)
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

// EqualJitter picks delay/2 + uniform(0, delay/2).
func EqualJitter(base Backoff, attempt int, prev time.Duration) time.Duration {
	d := base.Delay(attempt)
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

// DecorrelatedJitter picks uniformly in [0, min(prev*3, Delay(attempt))),
// a variant of the AWS "decorrelated jitter" formula with the backoff's
// Delay(attempt) as an upper bound proxy for Max; prev <= 0 is taken as
// Delay(attempt).
func DecorrelatedJitter(base Backoff, attempt int, prev time.Duration) time.Duration {
	cap_ := base.Delay(attempt)
	if prev <= 0 {
		prev = cap_
	}
	upper := prev * 3
	if upper > cap_ {
		upper = cap_
	}
	if upper <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(upper)))
}

// Policy composes a Backoff and a Jitter into the delay schedule a
// Resilient strategy consults between attempts, plus the max-attempt cap.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Jitter      Jitter
}

// NewPolicy validates and returns a Policy. A nil Jitter defaults to
// NoJitter.
func NewPolicy(maxAttempts int, backoff Backoff, jitter Jitter) (Policy, error) {
	if maxAttempts <= 0 {
		return Policy{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "maxAttempts must be > 0", nil)
	}
	if backoff == nil {
		return Policy{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "backoff must not be nil", nil)
	}
	if jitter == nil {
		jitter = NoJitter
	}
	return Policy{MaxAttempts: maxAttempts, Backoff: backoff, Jitter: jitter}, nil
}

// NextDelay returns the delay to wait before retry attempt, given the
// previous delay used (0 on the first retry).
func (p Policy) NextDelay(attempt int, prevDelay time.Duration) time.Duration {
	return p.Jitter(p.Backoff, attempt, prevDelay)
}
