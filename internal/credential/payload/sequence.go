package payload

import (
	"sync"
	"time"
)

// Sequencer hands out strictly increasing millisecond readings. When two
// calls land in the same millisecond, or the clock steps back, the second
// reading is bumped past the first.
type Sequencer struct {
	mu   sync.Mutex
	last int64
}

// Next returns a value >= now in epoch milliseconds that is greater than any
// previous value.
func (s *Sequencer) Next(now time.Time) int64 {
	ms := now.UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return ms
}
