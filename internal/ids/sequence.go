// Package ids hands out time-derived integer identifiers.
package ids

import "time"

// Sequence produces strictly increasing ids from the current Unix millisecond.
// When the clock has not advanced past the last id (two calls in the same
// millisecond, or a clock that moved backwards) the previous id plus one is used.
type Sequence struct {
	last  int64
	clock func() time.Time
}

// NewSequence creates a Sequence reading time from clock, or time.Now if nil.
func NewSequence(clock func() time.Time) *Sequence {
	if clock == nil {
		clock = time.Now
	}
	return &Sequence{clock: clock}
}

// Next returns a new id greater than every id returned or observed before.
func (s *Sequence) Next() int64 {
	id := s.clock().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe records an id issued elsewhere (for example one loaded from storage)
// so that Next never returns it again.
func (s *Sequence) Observe(id int64) {
	if id > s.last {
		s.last = id
	}
}
