package verify

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls how the verifier waits for a server that is still
// starting.
type BackoffConfig struct {
	Initial    time.Duration // first delay
	Max        time.Duration // cap on a single delay
	Multiplier float64       // growth per attempt
	JitterPct  float64       // total jitter band as a fraction of the delay (0.4 = ±20%)
}

// DefaultBackoffConfig returns the delays used while waiting on a server.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff produces exponentially growing delays with seeded jitter, so two
// runs with the same seed wait the same way.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff whose jitter is derived from seed.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next delay and advances the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the current delay without advancing.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))
	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	if b.config.JitterPct > 0 {
		band := delay * b.config.JitterPct
		delay += band*b.rng.Float64() - band/2
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Attempts returns how many delays have been handed out.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset starts the sequence over.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// retry calls fn until it succeeds, ctx ends or wait has elapsed. A zero
// wait means a single attempt. The last error from fn is returned.
func retry(ctx context.Context, wait time.Duration, b *Backoff, fn func() error) error {
	deadline := time.Now().Add(wait)
	for {
		err := fn()
		if err == nil || wait <= 0 || ctx.Err() != nil {
			return err
		}

		delay := b.Next()
		if time.Now().Add(delay).After(deadline) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
