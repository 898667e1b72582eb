package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/alojadmin/internal/auth"
	"github.com/dukerupert/alojadmin/internal/calendar"
	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/reservation"
)

const entityAccommodations = "accommodations"

// AccommodationGateway is the accommodation surface of the booking API.
type AccommodationGateway interface {
	GetAccommodation(ctx context.Context, cred, id string) (*model.Accommodation, error)
	CreateAccommodation(ctx context.Context, cred string, a model.Accommodation) (*model.Accommodation, error)
	UpdateAccommodation(ctx context.Context, cred, id string, a model.Accommodation) (*model.Accommodation, error)
	DeleteAccommodation(ctx context.Context, cred, id string) error
}

type AccommodationHandler struct {
	gw       AccommodationGateway
	svc      *calendar.Service
	notifier calendar.Notifier
	logger   *slog.Logger
}

func NewAccommodationHandler(gw AccommodationGateway, svc *calendar.Service, notifier calendar.Notifier, logger *slog.Logger) *AccommodationHandler {
	return &AccommodationHandler{gw: gw, svc: svc, notifier: notifier, logger: logger}
}

// changed reloads the session's accommodation cache and tells its clients.
func (h *AccommodationHandler) changed(r *http.Request, ac auth.AuthContext, action, id string) {
	if _, err := h.svc.RefreshAccommodations(r.Context(), ac.SessionID, ac.Credential); err != nil {
		h.logger.Warn("refresh accommodations", "session_id", ac.SessionID, "error", err)
	}
	if h.notifier != nil {
		h.notifier.Notify(ac.SessionID, entityAccommodations, action, map[string]any{"id": id})
	}
}

func (h *AccommodationHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	list, err := h.svc.RefreshAccommodations(r.Context(), ac.SessionID, ac.Credential)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if list == nil {
		list = []model.Accommodation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AccommodationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	a, err := h.gw.GetAccommodation(r.Context(), ac.Credential, r.PathValue("id"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if a == nil || a.IsDeleted {
		writeError(w, http.StatusNotFound, "Alojamiento no encontrado")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func decodeAccommodation(w http.ResponseWriter, r *http.Request) (model.Accommodation, bool) {
	var a model.Accommodation
	if !decodeJSON(w, r, &a) {
		return a, false
	}
	a.Name = strings.TrimSpace(a.Name)
	a.Address = strings.TrimSpace(a.Address)
	a.Description = strings.TrimSpace(a.Description)
	a.Image = strings.TrimSpace(a.Image)
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return a, false
	}
	return a, true
}

func (h *AccommodationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	a, ok := decodeAccommodation(w, r)
	if !ok {
		return
	}
	a.ID = ""
	a.IsDeleted = false

	created, err := h.gw.CreateAccommodation(r.Context(), ac.Credential, a)
	if err != nil {
		h.logger.Warn("create accommodation", "error", err)
		writeUpstreamError(w, err)
		return
	}
	h.changed(r, ac, "created", string(created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *AccommodationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")
	a, ok := decodeAccommodation(w, r)
	if !ok {
		return
	}
	a.ID = model.FlexID(id)

	updated, err := h.gw.UpdateAccommodation(r.Context(), ac.Credential, id, a)
	if err != nil {
		h.logger.Warn("update accommodation", "id", id, "error", err)
		if gateway.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Alojamiento no encontrado")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	h.changed(r, ac, "updated", id)
	writeJSON(w, http.StatusOK, updated)
}

func (h *AccommodationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if err := h.gw.DeleteAccommodation(r.Context(), ac.Credential, id); err != nil {
		h.logger.Warn("delete accommodation", "id", id, "error", err)
		if gateway.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Alojamiento no encontrado")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	h.changed(r, ac, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccommodationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	q := r.URL.Query()

	events, err := h.svc.Availability(r.Context(), ac.Credential, r.PathValue("id"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []reservation.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
