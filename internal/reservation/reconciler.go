package reservation

import (
	"errors"
	"slices"
	"sync"
)

// ErrNotOptimistic is returned when an event without a temporary identifier
// is offered as an optimistic entry.
var ErrNotOptimistic = errors.New("event id does not carry the temporary marker")

// Reconciler owns the authoritative event list of one console session.
//
// Fetch results are applied through tickets: Begin hands out a ticket before
// the request is issued and Commit applies the response only if no newer
// ticket has been committed meanwhile. Optimistic entries appended after a
// ticket was issued survive that ticket's commit, since the fetch could not
// have seen them. An optimistic entry whose write is still unresolved
// survives every commit until Settle or DropOptimistic.
type Reconciler struct {
	mu      sync.RWMutex
	events  []CalendarEvent
	pending map[string]optimisticEntry
	issued  uint64
	applied uint64
}

type optimisticEntry struct {
	seq      uint64 // ticket counter when the entry was appended or settled
	inFlight bool
}

func NewReconciler() *Reconciler {
	return &Reconciler{pending: make(map[string]optimisticEntry)}
}

// Begin issues the next fetch ticket.
func (r *Reconciler) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// Commit replaces the list with events if ticket is not older than the last
// applied ticket. It reports whether the list was replaced.
func (r *Reconciler) Commit(ticket uint64, events []CalendarEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticket < r.applied {
		return false
	}

	next := make([]CalendarEvent, 0, len(events)+len(r.pending))
	next = append(next, events...)
	for _, e := range r.events {
		p, ok := r.pending[e.ID]
		if !ok {
			continue
		}
		if p.inFlight || p.seq >= ticket {
			next = append(next, e)
		} else {
			delete(r.pending, e.ID)
		}
	}

	r.events = next
	r.applied = ticket
	return true
}

// ReplaceAll replaces the whole list. Every optimistic entry is superseded,
// in flight or not, and every outstanding ticket becomes stale.
func (r *Reconciler) ReplaceAll(events []CalendarEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	r.applied = r.issued
	r.events = slices.Clone(events)
	clear(r.pending)
}

// AppendOptimistic appends e, which must carry a temporary identifier.
func (r *Reconciler) AppendOptimistic(e CalendarEvent) error {
	if !e.IsOptimistic() {
		return ErrNotOptimistic
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	r.pending[e.ID] = optimisticEntry{seq: r.issued, inFlight: true}
	return nil
}

// Settle marks the write behind an optimistic entry as resolved. The entry is
// then superseded by the first fetch issued afterwards. It reports whether id
// was pending.
func (r *Reconciler) Settle(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; !ok {
		return false
	}
	r.pending[id] = optimisticEntry{seq: r.issued}
	return true
}

// DropOptimistic removes every event whose identifier carries the temporary
// marker and returns how many were removed. The relative order of the
// remaining events is preserved.
func (r *Reconciler) DropOptimistic() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0:0]
	dropped := 0
	for _, e := range r.events {
		if e.IsOptimistic() {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	clear(r.pending)
	return dropped
}

// Snapshot returns a copy of the current list.
func (r *Reconciler) Snapshot() []CalendarEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CalendarEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of events in the list.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
