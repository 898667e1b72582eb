package reservation

import (
	"strings"
)

// MatchAll is the filter value that disables a predicate.
const MatchAll = "all"

// Criteria selects a subset of events. Zero-value fields match everything.
type Criteria struct {
	GuestSearch   string
	Accommodation string
	Status        string
}

func isMatchAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, MatchAll)
}

// Filter returns the events satisfying every predicate in c, in their
// original order. events is not modified.
func Filter(events []CalendarEvent, c Criteria) []CalendarEvent {
	guest := strings.ToLower(strings.TrimSpace(c.GuestSearch))
	matchAccommodation := !isMatchAll(c.Accommodation)
	matchStatus := !isMatchAll(c.Status)
	var status Status
	if matchStatus {
		status, _ = NormalizeStatus(c.Status)
	}

	out := make([]CalendarEvent, 0, len(events))
	for _, e := range events {
		if guest != "" && !strings.Contains(strings.ToLower(e.GuestName), guest) {
			continue
		}
		if matchAccommodation && e.AccommodationName != c.Accommodation {
			continue
		}
		if matchStatus && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out
}

// AccommodationOptions lists the accommodation filter choices for events:
// MatchAll first, then each distinct known name in first-seen order.
func AccommodationOptions(events []CalendarEvent) []string {
	seen := make(map[string]struct{}, len(events))
	opts := []string{MatchAll}
	for _, e := range events {
		name := e.AccommodationName
		if name == "" || name == UnknownAccommodation {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		opts = append(opts, name)
	}
	return opts
}

// StatusOptions lists the status filter choices.
func StatusOptions() []string {
	return []string{MatchAll, string(StatusPending), string(StatusConfirmed), string(StatusCancelled)}
}
