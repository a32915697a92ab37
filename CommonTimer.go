package velcro

import "time"

// timer measures elapsed wall time for the step profile.
type timer struct {
	start time.Time
}

func makeTimer() timer {
	return timer{start: time.Now()}
}

func (t *timer) Reset() {
	t.start = time.Now()
}

// Milliseconds returns the time since the last reset.
func (t timer) Milliseconds() float64 {
	return float64(time.Since(t.start)) / float64(time.Millisecond)
}
