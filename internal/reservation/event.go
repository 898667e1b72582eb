package reservation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TempIDPrefix marks an event created locally and not yet confirmed upstream.
	TempIDPrefix = "temp-"

	UnknownGuest         = "Sin nombre"
	UnknownAccommodation = "Alojamiento desconocido"

	dateLayout = "2006-01-02"
)

// Status is a reservation status. Canonical values are PENDING, CONFIRMED and
// CANCELLED; unrecognised upstream tokens are carried uppercased.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

var statusSynonyms = map[string]Status{
	"PENDING":    StatusPending,
	"PENDIENTE":  StatusPending,
	"CONFIRMED":  StatusConfirmed,
	"CONFIRMADO": StatusConfirmed,
	"CONFIRMADA": StatusConfirmed,
	"CANCELLED":  StatusCancelled,
	"CANCELED":   StatusCancelled,
	"CANCELADO":  StatusCancelled,
	"CANCELADA":  StatusCancelled,
}

// NormalizeStatus uppercases token and maps English and Spanish synonyms to
// their canonical status. The second return is false when token is not a
// known synonym, in which case the uppercased token is returned unchanged.
func NormalizeStatus(token string) (Status, bool) {
	upper := strings.ToUpper(strings.TrimSpace(token))
	if s, ok := statusSynonyms[upper]; ok {
		return s, true
	}
	return Status(upper), false
}

// Canonical reports whether s is one of the three canonical statuses.
func (s Status) Canonical() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Date is a calendar date without time of day. The zero value means "no date".
type Date struct {
	t time.Time
}

// ParseDate parses s strictly as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CalendarEvent is the canonical form of one reservation.
type CalendarEvent struct {
	ID                string         `json:"id"`
	GuestName         string         `json:"guestName"`
	AccommodationName string         `json:"accommodationName"`
	AccommodationID   string         `json:"accommodationId,omitempty"`
	Start             Date           `json:"start"`
	End               Date           `json:"end"`
	Status            Status         `json:"status"`
	RawStart          string         `json:"rawStart,omitempty"`
	RawEnd            string         `json:"rawEnd,omitempty"`
	Raw               map[string]any `json:"-"`
}

// IsOptimistic reports whether the event carries a temporary identifier.
func (e CalendarEvent) IsOptimistic() bool {
	return strings.HasPrefix(e.ID, TempIDPrefix)
}

func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	type plain CalendarEvent
	return json.Marshal(struct {
		plain
		IsOptimistic bool `json:"isOptimistic"`
	}{plain(e), e.IsOptimistic()})
}

// NewTempID returns a fresh temporary identifier for an optimistic event.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}
