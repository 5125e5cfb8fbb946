package util

import "time"

// LookbackWindow returns the [from, to] range covering the last n bars of
// length step, with both ends aligned to bar boundaries. One extra bar is
// included so the still-forming bar does not shorten the result.
func LookbackWindow(now time.Time, step time.Duration, n int) (time.Time, time.Time) {
	if step <= 0 {
		step = time.Minute
	}
	to := now.Truncate(step)
	from := to.Add(-time.Duration(n) * step)
	return from, to.Add(step)
}
