package janitor

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles base per failed attempt up to capDelay.
func ExponentialBackoff(attempt int, base, capDelay time.Duration) time.Duration {
	// attempt=0 => base
	// attempt=1 => 2*base
	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter (0-250ms) so replicas do not purge in lockstep
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
