// Package retry provides exponential backoff for polling a condition
// until it holds.
//
// Only "not yet" is retried.  A failed check ends the poll with its
// error; callers never get an implicit retry of a failure.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff describes the delays between polls.
type Backoff struct {
	// InitialDelay is the wait after the first unmet check (default 500ms).
	InitialDelay time.Duration
	// MaxDelay caps the wait (default 5s).
	MaxDelay time.Duration
	// Multiplier grows the wait after each unmet check (default 2.0).
	Multiplier float64
	// Jitter adds ±25% so clients polling one server drift apart.
	Jitter bool
	// OnWait, when set, is called before each wait with the 1-based
	// number of the check that came back false.
	OnWait func(attempt int, wait time.Duration)
}

// PollBackoff returns a jittered backoff that starts at interval and
// doubles up to ceiling.
func PollBackoff(interval, ceiling time.Duration) *Backoff {
	if ceiling < interval {
		ceiling = interval
	}
	return &Backoff{
		InitialDelay: interval,
		MaxDelay:     ceiling,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (b *Backoff) limits() (initial, ceiling time.Duration, mult float64) {
	initial, ceiling, mult = b.InitialDelay, b.MaxDelay, b.Multiplier
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}
	if ceiling < initial {
		ceiling = initial
	}
	if mult < 1 {
		mult = 2.0
	}
	return initial, ceiling, mult
}

// Poll calls check until it reports true, returns an error, or ctx
// ends.  A check error is returned unchanged unless ctx has ended, in
// which case ctx.Err() is.
func (b *Backoff) Poll(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	delay, ceiling, mult := b.limits()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		ok, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if ok {
			return nil
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}
		if b.OnWait != nil {
			b.OnWait(attempt, wait)
		}

		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(math.Min(float64(delay)*mult, float64(ceiling)))
	}
}

// addJitter moves d by up to a quarter either way, never below 1ms.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
