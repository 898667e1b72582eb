package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/dukerupert/alojadmin/internal/auth"
	"github.com/dukerupert/alojadmin/internal/calendar"
	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/reservation"
)

type ReservationHandler struct {
	svc    *calendar.Service
	now    func() time.Time
	logger *slog.Logger
}

func NewReservationHandler(svc *calendar.Service, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, now: time.Now, logger: logger}
}

func criteriaFrom(r *http.Request) reservation.Criteria {
	q := r.URL.Query()
	return reservation.Criteria{
		GuestSearch:   q.Get("guest"),
		Accommodation: q.Get("accommodation"),
		Status:        q.Get("status"),
	}
}

// ensureLoaded fetches the session's list the first time it is read. A
// failed fetch is reported through the listing's error field.
func (h *ReservationHandler) ensureLoaded(r *http.Request, ac auth.AuthContext, force bool) {
	if !force && h.svc.Loaded(ac.SessionID) {
		return
	}
	if err := h.svc.Refresh(r.Context(), ac.SessionID, ac.Credential, r.URL.Query().Get("accommodation_id")); err != nil {
		h.logger.Warn("load reservations", "session_id", ac.SessionID, "error", err)
	}
}

func (h *ReservationHandler) Events(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	h.ensureLoaded(r, ac, r.URL.Query().Get("refresh") == "1")
	writeJSON(w, http.StatusOK, h.svc.Events(ac.SessionID, criteriaFrom(r)))
}

func (h *ReservationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.svc.Refresh(r.Context(), ac.SessionID, ac.Credential, r.URL.Query().Get("accommodation_id")); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Events(ac.SessionID, criteriaFrom(r)))
}

func (h *ReservationHandler) Options(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	h.ensureLoaded(r, ac, false)
	listing := h.svc.Events(ac.SessionID, reservation.Criteria{})
	writeJSON(w, http.StatusOK, map[string][]string{
		"accommodations": listing.Accommodations,
		"statuses":       listing.Statuses,
	})
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req model.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ev, err := h.svc.CreateReservation(r.Context(), ac.SessionID, ac.Credential, ac.Email, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if err := h.svc.CancelReservation(r.Context(), ac.SessionID, ac.Credential, ac.Email, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(reservation.StatusCancelled)})
}

// Calendar serves the filtered list as an iCalendar download.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	h.ensureLoaded(r, ac, false)

	c := criteriaFrom(r)
	listing := h.svc.Events(ac.SessionID, c)

	name := "Reservas"
	if acc := strings.TrimSpace(c.Accommodation); acc != "" && acc != reservation.MatchAll {
		name += " " + acc
	}
	filename := slug.Make(name) + ".ics"

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := calendar.WriteICS(w, name, listing.Events, h.now()); err != nil {
		h.logger.Error("write calendar", "session_id", ac.SessionID, "error", err)
	}
}
