package calendar

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dukerupert/alojadmin/internal/reservation"
)

const productID = "-//alojadmin//reservations//ES"

// WriteICS writes events as an iCalendar feed named name. Optimistic events
// are not part of the feed until the booking API has stored them.
func WriteICS(w io.Writer, name string, events []reservation.CalendarEvent, now time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := now.UTC()
	for _, e := range events {
		if e.IsOptimistic() || e.Start.IsZero() {
			continue
		}
		ev := cal.AddEvent(eventUID(e.ID))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(e.Start.Time())
		end := e.End
		if !end.After(e.Start) {
			end = e.Start.AddDays(1)
		}
		ev.SetAllDayEndAt(end.Time())
		ev.SetSummary(fmt.Sprintf("%s - %s", e.GuestName, e.AccommodationName))
		ev.SetStatus(icsStatus(e.Status))
		if e.AccommodationName != reservation.UnknownAccommodation {
			ev.SetLocation(e.AccommodationName)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

func eventUID(id string) string {
	return "reservation-" + id + "@alojadmin"
}

func icsStatus(s reservation.Status) ics.ObjectStatus {
	switch s {
	case reservation.StatusConfirmed:
		return ics.ObjectStatusConfirmed
	case reservation.StatusCancelled:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusTentative
	}
}
