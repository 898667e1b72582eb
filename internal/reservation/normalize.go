package reservation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// path addresses a value inside a raw record, one key per nesting level.
type path []string

// Extraction rules, in priority order. The first path that yields a present
// value wins.
var (
	idRule = []path{{"id"}, {"reservacionId"}}

	guestRule = []path{
		{"guest", "name"},
		{"user", "name"},
		{"guestName"},
		{"nombreHuesped"},
	}

	accommodationRule = []path{
		{"accommodation", "name"},
		{"accommodation", "nombre"},
		{"accomodation", "name"},
		{"accomodation", "nombre"},
		{"alojamiento", "name"},
		{"alojamiento", "nombre"},
		{"nombreAlojamiento"},
		{"accommodationName"},
	}

	accommodationIDRule = []path{
		{"accommodation", "id"},
		{"accomodation", "id"},
		{"alojamiento", "id"},
		{"accommodationId"},
		{"accommodation_id"},
		{"alojamientoId"},
	}

	startRule  = []path{{"check_in_date"}, {"startDate"}, {"fechaInicio"}}
	endRule    = []path{{"check_out_date"}, {"endDate"}, {"fechaFin"}}
	statusRule = []path{{"status"}, {"estado"}}
)

const defaultStatusToken = "PENDIENTE"

// PositionalIDPrefix marks ids derived from a record's position in its batch,
// so they never collide with numeric upstream ids.
const PositionalIDPrefix = "idx-"

var errNotScalar = errors.New("value is not a scalar")

// Normalizer maps raw upstream reservation records to CalendarEvents.
type Normalizer struct {
	now func() time.Time
	loc *time.Location
}

// NewNormalizer returns a Normalizer that computes "today" in loc. A nil loc
// means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{now: time.Now, loc: loc}
}

// WithClock returns a copy of n that reads the current time from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now, loc: n.loc}
}

// Today returns the current calendar date in the normalizer's location.
func (n *Normalizer) Today() Date {
	return DateOf(n.now().In(n.loc))
}

// Normalize maps one raw record, found at index in its batch, to a
// CalendarEvent. Missing fields are filled with defaults; an error is
// returned only when a field holds a value that cannot be read at all.
func (n *Normalizer) Normalize(raw map[string]any, index int) (CalendarEvent, error) {
	if raw == nil {
		return CalendarEvent{}, errors.New("record is null")
	}

	id, ok, err := resolve(raw, idRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve id: %w", err)
	}
	if !ok {
		id = PositionalIDPrefix + strconv.Itoa(index)
	}

	guest, ok, err := resolveName(raw, guestRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve guest: %w", err)
	}
	if !ok {
		guest = UnknownGuest
	}

	accommodation, ok, err := resolveName(raw, accommodationRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve accommodation: %w", err)
	}
	if !ok {
		accommodation = UnknownAccommodation
	}

	accommodationID, _, err := resolve(raw, accommodationIDRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve accommodation id: %w", err)
	}

	rawStart, _, err := resolve(raw, startRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve start: %w", err)
	}
	rawEnd, _, err := resolve(raw, endRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve end: %w", err)
	}

	statusToken, ok, err := resolve(raw, statusRule)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("resolve status: %w", err)
	}
	if !ok {
		statusToken = defaultStatusToken
	}
	status, _ := NormalizeStatus(statusToken)

	start, err := ParseDate(rawStart)
	if err != nil {
		start = n.Today()
	}
	end, err := ParseDate(rawEnd)
	if err != nil {
		end = start.AddDays(1)
	}

	return CalendarEvent{
		ID:                id,
		GuestName:         guest,
		AccommodationName: accommodation,
		AccommodationID:   accommodationID,
		Start:             start,
		End:               end,
		Status:            status,
		RawStart:          rawStart,
		RawEnd:            rawEnd,
		Raw:               raw,
	}, nil
}

// NormalizeBatch decodes and normalizes every element of items. Elements that
// are not JSON objects or fail normalization are skipped; one error is
// returned per skipped element and the rest of the batch is unaffected.
func (n *Normalizer) NormalizeBatch(items []json.RawMessage) ([]CalendarEvent, []error) {
	events := make([]CalendarEvent, 0, len(items))
	var errs []error
	for i, item := range items {
		raw, err := DecodeRaw(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		ev, err := n.Normalize(raw, i)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errs
}

// DecodeRaw decodes one JSON object, keeping numbers as json.Number so that
// large numeric identifiers survive intact.
func DecodeRaw(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if raw == nil {
		return nil, errors.New("record is null")
	}
	return raw, nil
}

func resolve(raw map[string]any, rule []path) (string, bool, error) {
	for _, p := range rule {
		v, ok := lookup(raw, p)
		if !ok {
			continue
		}
		s, present, err := scalarString(v)
		if err != nil {
			return "", false, fmt.Errorf("%s: %w", strings.Join(p, "."), err)
		}
		if present {
			return s, true, nil
		}
	}
	return "", false, nil
}

func resolveName(raw map[string]any, rule []path) (string, bool, error) {
	for _, p := range rule {
		v, ok := lookup(raw, p)
		if !ok {
			continue
		}
		s, present, err := scalarString(v)
		if err != nil {
			return "", false, fmt.Errorf("%s: %w", strings.Join(p, "."), err)
		}
		if s = strings.TrimSpace(s); present && s != "" {
			return s, true, nil
		}
	}
	return "", false, nil
}

// lookup walks p through nested objects. A missing key or a non-object
// intermediate value means absent.
func lookup(raw map[string]any, p path) (any, bool) {
	var cur any = raw
	for _, key := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalarString(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, x != "", nil
	case json.Number:
		return x.String(), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case int:
		return strconv.Itoa(x), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	default:
		return "", false, errNotScalar
	}
}

// HasID reports whether raw carries an upstream identifier.
func HasID(raw map[string]any) bool {
	_, ok, err := resolve(raw, idRule)
	return ok && err == nil
}
