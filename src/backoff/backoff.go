// Package backoff implements the bounded, jittered, resettable delay
// generator used by consumer retry loops (C8/C10), generalizing the
// doubling-plus-jitter RetryBackoffFn clients/kafka/config.go already
// builds inline for franz-go's own retry machinery.
package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff guards its state with a mutex, so its methods may be called from
// several goroutines; the consumer loops still keep one instance per loop,
// matching the franz-go client's own per-client backoff state (§4.2).
type Backoff struct {
	mu             sync.Mutex
	initial        time.Duration
	max            time.Duration
	jitterMax      time.Duration
	currentAttempt int
	rng            *rand.Rand
}

// New builds a Backoff starting at attempt 1. jitterMax may be zero to
// disable jitter.
func New(initial, max, jitterMax time.Duration) *Backoff {
	return &Backoff{
		initial:        initial,
		max:            max,
		jitterMax:      jitterMax,
		currentAttempt: 1,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns min(initial*2^(attempt-1), max) + rand[0,jitterMax] and
// advances the internal attempt counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	exp := math.Pow(2, float64(b.currentAttempt-1))
	delay := time.Duration(float64(b.initial) * exp)
	if delay > b.max || delay <= 0 {
		delay = b.max
	}
	b.currentAttempt++

	if b.jitterMax <= 0 {
		return delay
	}
	jitter := time.Duration(b.rng.Int63n(int64(b.jitterMax) + 1))
	return delay + jitter
}

// Reset sets the attempt counter back to 1.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentAttempt = 1
}

// Attempt returns the next attempt number that will be used by Next,
// exposed for tests and logging.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentAttempt
}
