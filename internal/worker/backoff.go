package worker

import (
	"math/rand"
	"time"
)

// backoffCeiling doubles from base per attempt (attempt 1 → base, 2 → 2×base,
// …) and saturates at cap.
func backoffCeiling(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
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

// backoffDelay applies full jitter: a uniform duration in (0, ceiling].
// Jitter spreads reconnect storms when many terminals lose the same uplink.
func backoffDelay(attempt int, base, cap time.Duration) time.Duration {
	ceiling := backoffCeiling(attempt, base, cap)
	return time.Duration(rand.Int63n(int64(ceiling))) + 1
}
