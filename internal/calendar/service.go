package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/reservation"
)

// EntityReservations is the websocket entity for reservation list changes.
const EntityReservations = "reservations"

// Notification actions.
const (
	ActionReplaced   = "replaced"
	ActionOptimistic = "optimistic"
	ActionRolledBack = "rolled_back"
	ActionCreated    = "created"
	ActionCancelled  = "cancelled"
)

// Gateway is the subset of the booking API client the service uses.
type Gateway interface {
	ListReservations(ctx context.Context, cred, accommodationID string) ([]json.RawMessage, error)
	CheckAvailability(ctx context.Context, cred, accommodationID, start, end string) ([]json.RawMessage, error)
	CreateReservation(ctx context.Context, cred string, req model.ReservationRequest) (json.RawMessage, error)
	UpdateReservationStatus(ctx context.Context, cred, id, status string) error
	ListAccommodations(ctx context.Context, cred string) ([]model.Accommodation, error)
}

// Notifier pushes change notifications to the clients of one session.
type Notifier interface {
	Notify(owner int64, entity, action string, extra map[string]any)
}

// ActivityRecorder persists reservation write attempts.
type ActivityRecorder interface {
	Record(a model.Activity) (*model.Activity, error)
}

// ValidationError is a reservation request rejected before reaching the
// booking API.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// WriteError is a reservation write the booking API refused or never answered.
// Message is safe to show to the console user.
type WriteError struct {
	Status  int
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write reservation: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Listing is a filtered view of one session's reservation list.
type Listing struct {
	Events         []reservation.CalendarEvent `json:"events"`
	Accommodations []string                    `json:"accommodations"`
	Statuses       []string                    `json:"statuses"`
	Error          string                      `json:"error,omitempty"`
	LoadedAt       *time.Time                  `json:"loadedAt,omitempty"`
	Loaded         bool                        `json:"loaded"`
}

// View is the reservation state of one console session.
type View struct {
	rec *reservation.Reconciler

	// createMu serializes creations so at most one optimistic entry exists.
	createMu sync.Mutex

	mu             sync.RWMutex
	errMsg         string
	accommodations []model.Accommodation
	accLoaded      bool
	scope          string
	loadedAt       time.Time
}

func newView() *View {
	return &View{rec: reservation.NewReconciler()}
}

func (v *View) setError(msg string) {
	v.mu.Lock()
	v.errMsg = msg
	v.mu.Unlock()
}

func (v *View) scopeID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scope
}

func (v *View) accommodationName(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, a := range v.accommodations {
		if string(a.ID) == id && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name), true
		}
	}
	return "", false
}

// Service keeps one reservation view per console session and mediates every
// read and write against the booking API.
type Service struct {
	gw       Gateway
	norm     *reservation.Normalizer
	notifier Notifier
	activity ActivityRecorder
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	views map[int64]*View
}

// NewService creates a calendar service. notifier and activity may be nil.
func NewService(gw Gateway, norm *reservation.Normalizer, notifier Notifier, activity ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{
		gw:       gw,
		norm:     norm,
		notifier: notifier,
		activity: activity,
		logger:   logger.With("component", "calendar"),
		now:      time.Now,
		views:    make(map[int64]*View),
	}
}

func (s *Service) view(sessionID int64) *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[sessionID]
	if !ok {
		v = newView()
		s.views[sessionID] = v
	}
	return v
}

func (s *Service) lookup(sessionID int64) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[sessionID]
	return v, ok
}

// Forget drops the view of a session.
func (s *Service) Forget(sessionID int64) {
	s.mu.Lock()
	delete(s.views, sessionID)
	s.mu.Unlock()
}

// Sessions returns the ids of sessions with a live view, in ascending order.
func (s *Service) Sessions() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (s *Service) notify(sessionID int64, action string, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(sessionID, EntityReservations, action, extra)
}

func (s *Service) record(a model.Activity) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(a); err != nil {
		s.logger.Error("record activity", "action", a.Action, "error", err)
	}
}

// Refresh fetches the reservation list of a session, optionally scoped to one
// accommodation, and makes it authoritative. On failure the list is left as
// it was and the user-facing message is kept on the view. An empty
// credential is a no-op.
func (s *Service) Refresh(ctx context.Context, sessionID int64, cred, accommodationID string) error {
	if cred == "" {
		return nil
	}
	v := s.view(sessionID)

	v.mu.RLock()
	accLoaded := v.accLoaded
	v.mu.RUnlock()
	if !accLoaded {
		if _, err := s.RefreshAccommodations(ctx, sessionID, cred); err != nil {
			s.logger.Warn("load accommodations for names", "session_id", sessionID, "error", err)
		}
	}

	ticket := v.rec.Begin()
	items, err := s.gw.ListReservations(ctx, cred, accommodationID)
	if err != nil {
		msg := gateway.UserMessage(err)
		v.setError(msg)
		s.logger.Warn("fetch reservations", "session_id", sessionID, "error", err)
		return fmt.Errorf("fetch reservations: %w", err)
	}

	events := s.normalize(items)
	for i := range events {
		if events[i].AccommodationName != reservation.UnknownAccommodation {
			continue
		}
		if name, ok := v.accommodationName(events[i].AccommodationID); ok {
			events[i].AccommodationName = name
		}
	}

	if !v.rec.Commit(ticket, events) {
		s.logger.Debug("discard stale reservation fetch", "session_id", sessionID, "ticket", ticket)
		return nil
	}

	v.mu.Lock()
	v.errMsg = ""
	v.scope = accommodationID
	v.loadedAt = s.now()
	v.mu.Unlock()

	s.notify(sessionID, ActionReplaced, map[string]any{"count": len(events)})
	return nil
}

func (s *Service) normalize(items []json.RawMessage) []reservation.CalendarEvent {
	events, errs := s.norm.NormalizeBatch(items)
	for _, err := range errs {
		s.logger.Warn("skip malformed reservation", "error", err)
	}
	return events
}

// RefreshAccommodations reloads the accommodation cache of a session.
func (s *Service) RefreshAccommodations(ctx context.Context, sessionID int64, cred string) ([]model.Accommodation, error) {
	list, err := s.gw.ListAccommodations(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	v := s.view(sessionID)
	v.mu.Lock()
	v.accommodations = list
	v.accLoaded = true
	v.mu.Unlock()
	return list, nil
}

// Accommodations returns the cached accommodations of a session.
func (s *Service) Accommodations(sessionID int64) []model.Accommodation {
	v, ok := s.lookup(sessionID)
	if !ok {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.accommodations)
}

// Events returns the session's list filtered by c, with the option lists
// derived from the unfiltered list.
func (s *Service) Events(sessionID int64, c reservation.Criteria) Listing {
	v := s.view(sessionID)
	all := v.rec.Snapshot()

	out := Listing{
		Events:         reservation.Filter(all, c),
		Accommodations: reservation.AccommodationOptions(all),
		Statuses:       reservation.StatusOptions(),
	}

	v.mu.RLock()
	out.Error = v.errMsg
	if !v.loadedAt.IsZero() {
		at := v.loadedAt
		out.LoadedAt = &at
		out.Loaded = true
	}
	v.mu.RUnlock()
	return out
}

// Loaded reports whether the session's list has been fetched at least once.
func (s *Service) Loaded(sessionID int64) bool {
	v, ok := s.lookup(sessionID)
	if !ok {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.loadedAt.IsZero()
}

// Snapshot returns the full, unfiltered list of a session.
func (s *Service) Snapshot(sessionID int64) []reservation.CalendarEvent {
	return s.view(sessionID).rec.Snapshot()
}

type validated struct {
	req   model.ReservationRequest
	start reservation.Date
	end   reservation.Date
}

func validateRequest(req model.ReservationRequest) (validated, error) {
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.AccommodationID = strings.TrimSpace(req.AccommodationID)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)

	if req.GuestName == "" {
		return validated{}, &ValidationError{Field: "guestName", Message: "El nombre del huésped es obligatorio"}
	}
	if req.AccommodationID == "" {
		return validated{}, &ValidationError{Field: "accommodationId", Message: "Selecciona un alojamiento"}
	}
	start, err := reservation.ParseDate(req.StartDate)
	if err != nil {
		return validated{}, &ValidationError{Field: "startDate", Message: "La fecha de inicio no es válida"}
	}
	end, err := reservation.ParseDate(req.EndDate)
	if err != nil {
		return validated{}, &ValidationError{Field: "endDate", Message: "La fecha de fin no es válida"}
	}
	if !end.After(start) {
		return validated{}, &ValidationError{Field: "endDate", Message: "La fecha de fin debe ser posterior a la de inicio"}
	}
	return validated{req: req, start: start, end: end}, nil
}

// CreateReservation validates req, shows it immediately as an optimistic
// event, and persists it upstream. A failed write rolls the optimistic event
// back. On success the list is refetched and the created event is returned.
func (s *Service) CreateReservation(ctx context.Context, sessionID int64, cred, email string, req model.ReservationRequest) (reservation.CalendarEvent, error) {
	in, err := validateRequest(req)
	if err != nil {
		return reservation.CalendarEvent{}, err
	}
	req = in.req

	v := s.view(sessionID)
	v.createMu.Lock()
	defer v.createMu.Unlock()

	accName, ok := v.accommodationName(req.AccommodationID)
	if !ok {
		accName = reservation.UnknownAccommodation
	}
	optimistic := reservation.CalendarEvent{
		ID:                reservation.NewTempID(),
		GuestName:         req.GuestName,
		AccommodationName: accName,
		AccommodationID:   req.AccommodationID,
		Start:             in.start,
		End:               in.end,
		Status:            reservation.StatusPending,
		RawStart:          req.StartDate,
		RawEnd:            req.EndDate,
	}
	if err := v.rec.AppendOptimistic(optimistic); err != nil {
		return reservation.CalendarEvent{}, fmt.Errorf("append optimistic: %w", err)
	}
	s.notify(sessionID, ActionOptimistic, map[string]any{"id": optimistic.ID, "event": optimistic})

	raw, err := s.gw.CreateReservation(ctx, cred, req)
	if err != nil {
		v.rec.DropOptimistic()
		msg := gateway.UserMessage(err)
		v.setError(msg)
		s.notify(sessionID, ActionRolledBack, map[string]any{"id": optimistic.ID, "error": msg})
		s.record(model.Activity{
			Email:           email,
			Action:          model.ActionCreate,
			AccommodationID: req.AccommodationID,
			Outcome:         model.OutcomeError,
			Message:         msg,
		})
		s.logger.Warn("create reservation", "session_id", sessionID, "error", err)
		return reservation.CalendarEvent{}, &WriteError{Status: UpstreamStatus(err), Message: msg, Err: err}
	}

	created := s.createdEvent(raw, optimistic)
	s.record(model.Activity{
		Email:           email,
		Action:          model.ActionCreate,
		ReservationID:   createdID(created),
		AccommodationID: req.AccommodationID,
		Outcome:         model.OutcomeOK,
	})

	v.rec.Settle(optimistic.ID)
	if err := s.Refresh(ctx, sessionID, cred, v.scopeID()); err != nil {
		// The write went through; only the refetch failed.
		v.rec.DropOptimistic()
	}
	s.notify(sessionID, ActionCreated, map[string]any{"id": created.ID, "tempId": optimistic.ID})
	return created, nil
}

// createdEvent normalizes the record returned by a create. Fields the API
// left out are taken from the optimistic event.
func (s *Service) createdEvent(raw json.RawMessage, optimistic reservation.CalendarEvent) reservation.CalendarEvent {
	rec, err := reservation.DecodeRaw(raw)
	if err != nil || !reservation.HasID(rec) {
		return optimistic
	}
	ev, err := s.norm.Normalize(rec, 0)
	if err != nil {
		s.logger.Warn("normalize created reservation", "error", err)
		return optimistic
	}
	if ev.GuestName == reservation.UnknownGuest {
		ev.GuestName = optimistic.GuestName
	}
	if ev.AccommodationName == reservation.UnknownAccommodation {
		ev.AccommodationName = optimistic.AccommodationName
	}
	if ev.AccommodationID == "" {
		ev.AccommodationID = optimistic.AccommodationID
	}
	if ev.RawStart == "" {
		ev.Start, ev.RawStart = optimistic.Start, optimistic.RawStart
	}
	if ev.RawEnd == "" {
		ev.End, ev.RawEnd = optimistic.End, optimistic.RawEnd
	}
	return ev
}

func createdID(ev reservation.CalendarEvent) string {
	if ev.IsOptimistic() {
		return ""
	}
	return ev.ID
}

// CancelReservation marks a reservation CANCELLED upstream and refetches.
func (s *Service) CancelReservation(ctx context.Context, sessionID int64, cred, email, id string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, reservation.TempIDPrefix) || strings.HasPrefix(id, reservation.PositionalIDPrefix) {
		return &ValidationError{Field: "id", Message: "La reservación aún no ha sido guardada"}
	}

	v := s.view(sessionID)
	var accommodationID string
	for _, e := range v.rec.Snapshot() {
		if e.ID == id {
			accommodationID = e.AccommodationID
			break
		}
	}

	entry := model.Activity{
		Email:           email,
		Action:          model.ActionCancel,
		ReservationID:   id,
		AccommodationID: accommodationID,
	}

	if err := s.gw.UpdateReservationStatus(ctx, cred, id, string(reservation.StatusCancelled)); err != nil {
		msg := gateway.UserMessage(err)
		v.setError(msg)
		entry.Outcome = model.OutcomeError
		entry.Message = msg
		s.record(entry)
		s.logger.Warn("cancel reservation", "session_id", sessionID, "id", id, "error", err)
		return &WriteError{Status: UpstreamStatus(err), Message: msg, Err: err}
	}

	entry.Outcome = model.OutcomeOK
	s.record(entry)
	s.notify(sessionID, ActionCancelled, map[string]any{"id": id})

	if err := s.Refresh(ctx, sessionID, cred, v.scopeID()); err != nil {
		s.logger.Warn("refetch after cancel", "session_id", sessionID, "error", err)
	}
	return nil
}

// Availability returns the reservations of one accommodation overlapping the
// given date range.
func (s *Service) Availability(ctx context.Context, cred, accommodationID, start, end string) ([]reservation.CalendarEvent, error) {
	if strings.TrimSpace(accommodationID) == "" {
		return nil, &ValidationError{Field: "accommodationId", Message: "Selecciona un alojamiento"}
	}
	from, err := reservation.ParseDate(start)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Message: "La fecha de inicio no es válida"}
	}
	to, err := reservation.ParseDate(end)
	if err != nil {
		return nil, &ValidationError{Field: "end_date", Message: "La fecha de fin no es válida"}
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "end_date", Message: "La fecha de fin debe ser posterior a la de inicio"}
	}

	items, err := s.gw.CheckAvailability(ctx, cred, accommodationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	return s.normalize(items), nil
}

// UpstreamStatus maps an upstream failure to the status returned to the console.
func UpstreamStatus(err error) int {
	var apiErr *gateway.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	case errors.Is(err, gateway.ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

