package quiz

import "time"

// Remaining reports the remaining seconds, derived from the wall clock and
// the session start so repeated calls never drift. Returns -1 for untimed
// sessions.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(s.now())
}

func (s *Session) remainingLocked(now time.Time) int {
	if s.limit <= 0 {
		return -1
	}
	remaining := int(s.limit/time.Second) - int(now.Sub(s.startedAt)/time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Watch drives the countdown: one tick event per interval while time
// remains, then a forced Submit at zero. Returns immediately for untimed
// sessions, and stops as soon as the session finishes by any path.
// Run it in its own goroutine; interval is one second in production.
func (s *Session) Watch(interval time.Duration) {
	if s.limit <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			remaining := s.Remaining()
			if remaining > 0 {
				s.broadcast(Event{Type: EventTick, RemainingSeconds: remaining})
				continue
			}
			// Losing the race against a user submit just hits the
			// idempotent path.
			_, _ = s.Submit()
			return
		}
	}
}
