// Package undo keeps reversible deletions for a short grace window.
package undo

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultWindow is how long a destructive change stays reversible.
const DefaultWindow = 3 * time.Second

// Handle identifies one pending undo.
type Handle struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type record[T any] struct {
	handle Handle
	value  T
}

// Ledger holds pending undo records. Each record carries whatever the owner
// needs to reverse the change (removed entities, original index) and expires
// after the window. Records are independent: pushing a new one never cancels
// another.
//
// A Ledger is not safe for concurrent use.
type Ledger[T any] struct {
	window  time.Duration
	clock   func() time.Time
	pending map[string]record[T]
}

// NewLedger creates a Ledger. A zero window uses DefaultWindow and a nil clock
// uses time.Now.
func NewLedger[T any](window time.Duration, clock func() time.Time) *Ledger[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Ledger[T]{
		window:  window,
		clock:   clock,
		pending: make(map[string]record[T]),
	}
}

// Push stores value and returns the handle that can reverse it until it expires.
func (l *Ledger[T]) Push(value T) Handle {
	h := Handle{
		ID:        uuid.NewString(),
		ExpiresAt: l.clock().Add(l.window),
	}
	l.pending[h.ID] = record[T]{handle: h, value: value}
	return h
}

// Take removes the record for id and returns its value. It reports false when
// the id is unknown or the window has already closed; an expired record stays
// until Sweep reports it.
func (l *Ledger[T]) Take(id string) (T, bool) {
	rec, ok := l.pending[id]
	if !ok || !l.clock().Before(rec.handle.ExpiresAt) {
		var zero T
		return zero, false
	}
	delete(l.pending, id)
	return rec.value, true
}

// Sweep drops every expired record and returns their handles, oldest first.
func (l *Ledger[T]) Sweep() []Handle {
	now := l.clock()
	var expired []Handle
	for id, rec := range l.pending {
		if !now.Before(rec.handle.ExpiresAt) {
			expired = append(expired, rec.handle)
			delete(l.pending, id)
		}
	}
	sortHandles(expired)
	return expired
}

// Pending returns the handles whose window is still open, oldest first.
func (l *Ledger[T]) Pending() []Handle {
	now := l.clock()
	handles := make([]Handle, 0, len(l.pending))
	for _, rec := range l.pending {
		if now.Before(rec.handle.ExpiresAt) {
			handles = append(handles, rec.handle)
		}
	}
	sortHandles(handles)
	return handles
}

// Len returns the number of pending records, expired or not.
func (l *Ledger[T]) Len() int {
	return len(l.pending)
}

func sortHandles(handles []Handle) {
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].ExpiresAt.Equal(handles[j].ExpiresAt) {
			return handles[i].ID < handles[j].ID
		}
		return handles[i].ExpiresAt.Before(handles[j].ExpiresAt)
	})
}
