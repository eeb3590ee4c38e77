package app

import "time"

// Default retry backoff bounds.
const (
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffCap  = 60 * time.Second
)

// retryDelay computes the exponential backoff delay for a record that has
// failed retryCount deliveries: base * 2^retryCount, capped.
func retryDelay(base, cap time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if cap <= 0 {
		cap = DefaultBackoffCap
	}
	d := base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
