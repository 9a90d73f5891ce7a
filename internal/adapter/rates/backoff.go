package rates

import "time"

const maxBackoff = 5 * time.Second

// backoff returns base * 2^attempt, capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		return base
	}
	if attempt > 20 {
		return maxBackoff
	}
	d := base * time.Duration(1<<attempt)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
