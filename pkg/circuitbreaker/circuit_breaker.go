package circuitbreaker

import (
	"sync"
	"time"
)

// timeNow allows mocking time.Now for testing purposes
//
//nolint:gochecknoglobals // This is used for testing purposes
var timeNow = time.Now

// SetTimeNow sets the time function for the package and returns a function to restore it.
// This is intended for testing purposes only.
func SetTimeNow(f func() time.Time) func() {
	original := timeNow
	timeNow = f
	return func() { timeNow = original }
}

const (
	// DefaultThreshold is the default number of consecutive failures before
	// the circuit breaker opens.
	DefaultThreshold = 5

	// DefaultTimeout is the default duration the circuit breaker stays open
	// before attempting to close again.
	DefaultTimeout = 1 * time.Minute
)

// CircuitBreaker guards a blob.Source backend (HTTP or S3) against a flaky
// origin. It tracks consecutive transport failures — timeouts, connection
// refusals, unreadable responses — and opens once threshold is reached,
// short-circuiting further calls for timeout. A missing artifact (mapped
// to blob.ErrNotFound by the caller before RecordFailure/RecordSuccess is
// even invoked) never counts as a failure: a well-formed "no such shard"
// answer means the origin is healthy, it just doesn't have that artifact.
// The HTTP backend maps every non-2xx status, 5xx included, to
// blob.ErrNotFound, so status codes never trip the breaker.
type CircuitBreaker struct {
	mu sync.Mutex

	failureCount int
	threshold    int
	timeout      time.Duration
	openedAt     time.Time
}

// New creates a circuit breaker for one blob.Source backend.
func New(threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
	}
}

// RecordFailure counts one transport failure against the backing origin.
// Callers must not invoke this for a well-formed not-found response — only
// for an actual fetch failure (timeout, connection error, transport
// error), so ErrShardFetchFailed's rate is what trips the breaker, not an
// index's expected 404s.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	if cb.failureCount >= cb.threshold {
		cb.openedAt = timeNow()
	}
}

// RecordSuccess records a successful fetch against the origin (including
// a not-found response, which still proves it's reachable), resetting the
// failure count and closing the circuit if it was open or half-open.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.openedAt = time.Time{}
}

// AllowRequest checks if the circuit breaker allows a request to go through.
// It handles the state transition from Open to Half-Open.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.openedAt.IsZero() {
		// Circuit is closed
		return true
	}

	if timeNow().Sub(cb.openedAt) >= cb.timeout {
		// Half-open state: allow one request through by resetting openedAt to current time.
		// This prevents a thundering herd - only one request is allowed through while
		// concurrent requests are blocked until the next timeout cycle.
		// The failure count is preserved. If the next attempt fails, RecordFailure()
		// will see that the threshold is still met and immediately re-open the circuit.
		// If it succeeds, RecordSuccess() will reset the failure count and close the circuit.
		cb.openedAt = timeNow()

		return true
	}

	return false
}

// IsOpen returns true if the circuit breaker is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.openedAt.IsZero() {
		return false
	}

	// Check if timeout has expired (half-open basically counts as open for status check usually,
	// checking strictly if we are in the "blocked" window)
	return timeNow().Sub(cb.openedAt) < cb.timeout
}

// ForceOpen forces the circuit breaker into an open state. This is useful for testing or degraded mode initialization.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = cb.threshold
	cb.openedAt = timeNow()
}
