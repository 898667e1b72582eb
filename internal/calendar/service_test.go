package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/reservation"
)

type fakeGateway struct {
	mu             sync.Mutex
	reservations   []json.RawMessage
	listErr        error
	accommodations []model.Accommodation
	accErr         error
	createResp     json.RawMessage
	createErr      error
	statusErr      error
	availability   []json.RawMessage

	listCalls   int
	lastScope   string
	created     []model.ReservationRequest
	statusCalls []string
	onCreate    func()
}

func (f *fakeGateway) ListReservations(ctx context.Context, cred, accommodationID string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastScope = accommodationID
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.reservations, nil
}

func (f *fakeGateway) CheckAvailability(ctx context.Context, cred, accommodationID, start, end string) ([]json.RawMessage, error) {
	return f.availability, nil
}

func (f *fakeGateway) CreateReservation(ctx context.Context, cred string, req model.ReservationRequest) (json.RawMessage, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeGateway) UpdateReservationStatus(ctx context.Context, cred, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, id+":"+status)
	return f.statusErr
}

func (f *fakeGateway) ListAccommodations(ctx context.Context, cred string) ([]model.Accommodation, error) {
	if f.accErr != nil {
		return nil, f.accErr
	}
	return f.accommodations, nil
}

func (f *fakeGateway) setReservations(records ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations = nil
	for _, r := range records {
		f.reservations = append(f.reservations, json.RawMessage(r))
	}
}

func (f *fakeGateway) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

type notification struct {
	owner  int64
	action string
	extra  map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(owner int64, entity, action string, extra map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{owner: owner, action: action, extra: extra})
}

func (f *fakeNotifier) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.sent {
		out = append(out, n.action)
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []model.Activity
}

func (f *fakeRecorder) Record(a model.Activity) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, a)
	return &a, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	gw       *fakeGateway
	notifier *fakeNotifier
	recorder *fakeRecorder
	svc      *Service
}

func newFixture() *fixture {
	gw := &fakeGateway{
		accommodations: []model.Accommodation{
			{ID: "3", Name: "Casa Sol"},
			{ID: "4", Name: "Cabaña Luna"},
		},
	}
	n := &fakeNotifier{}
	r := &fakeRecorder{}
	norm := reservation.NewNormalizer(time.UTC).WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	})
	return &fixture{
		gw:       gw,
		notifier: n,
		recorder: r,
		svc:      NewService(gw, norm, n, r, discardLogger()),
	}
}

const (
	anaRecord = `{"id": 1, "guest": {"name": "Ana"}, "accommodation": {"name": "Casa Sol"}, "check_in_date": "2025-03-10", "check_out_date": "2025-03-12", "status": "CONFIRMADO"}`
	luisRecord = `{"id": 2, "guestName": "Luis", "accommodationId": 4, "startDate": "2025-03-15", "endDate": "2025-03-18", "estado": "pendiente"}`
)

func validRequest() model.ReservationRequest {
	return model.ReservationRequest{
		GuestName:       "Eva",
		StartDate:       "2025-04-01",
		EndDate:         "2025-04-03",
		AccommodationID: "3",
	}
}

func TestRefreshLoadsAndEnriches(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord, luisRecord)

	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	listing := f.svc.Events(1, reservation.Criteria{})
	if !listing.Loaded || listing.LoadedAt == nil {
		t.Error("expected listing to be marked loaded")
	}
	if len(listing.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(listing.Events))
	}
	if listing.Events[0].Status != reservation.StatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", listing.Events[0].Status)
	}
	if got := listing.Events[1].AccommodationName; got != "Cabaña Luna" {
		t.Errorf("accommodation = %q, want name filled from cache", got)
	}
	want := []string{reservation.MatchAll, "Casa Sol", "Cabaña Luna"}
	if len(listing.Accommodations) != len(want) {
		t.Fatalf("options = %v, want %v", listing.Accommodations, want)
	}
	for i := range want {
		if listing.Accommodations[i] != want[i] {
			t.Errorf("options[%d] = %q, want %q", i, listing.Accommodations[i], want[i])
		}
	}
	if len(listing.Statuses) != 4 {
		t.Errorf("statuses = %v", listing.Statuses)
	}
	if got := f.notifier.actions(); len(got) != 1 || got[0] != ActionReplaced {
		t.Errorf("notifications = %v, want [replaced]", got)
	}
}

func TestRefreshEmptyCredentialIsNoop(t *testing.T) {
	f := newFixture()
	if err := f.svc.Refresh(context.Background(), 1, "", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if f.gw.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0", f.gw.listCalls)
	}
	if f.svc.Loaded(1) {
		t.Error("view should not be loaded")
	}
}

func TestRefreshSkipsMalformedRecords(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord, `"not an object"`, `{"id": 9, "guestName": {"first": "X"}}`)

	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	events := f.svc.Snapshot(1)
	if len(events) != 1 || events[0].GuestName != "Ana" {
		t.Errorf("events = %+v, want only Ana", events)
	}
}

func TestRefreshFailureKeepsList(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord, luisRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	f.gw.setListErr(&gateway.APIError{StatusCode: 500, Message: "Base de datos caída"})
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err == nil {
		t.Fatal("expected error")
	}

	listing := f.svc.Events(1, reservation.Criteria{})
	if len(listing.Events) != 2 {
		t.Errorf("got %d events, want list unchanged", len(listing.Events))
	}
	if listing.Error != "Base de datos caída" {
		t.Errorf("error = %q", listing.Error)
	}

	f.gw.setListErr(nil)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := f.svc.Events(1, reservation.Criteria{}).Error; got != "" {
		t.Errorf("error = %q, want cleared after success", got)
	}
}

func TestRefreshScopeIsRemembered(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", "3"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	v, _ := f.svc.lookup(1)
	if v.scopeID() != "3" {
		t.Errorf("scope = %q, want 3", v.scopeID())
	}
	if f.gw.lastScope != "3" {
		t.Errorf("gateway scope = %q, want 3", f.gw.lastScope)
	}
}

func TestEventsFilters(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord, luisRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	listing := f.svc.Events(1, reservation.Criteria{Status: "pendiente"})
	if len(listing.Events) != 1 || listing.Events[0].GuestName != "Luis" {
		t.Errorf("events = %+v, want only Luis", listing.Events)
	}
	if len(listing.Accommodations) != 3 {
		t.Errorf("options should come from the unfiltered list, got %v", listing.Accommodations)
	}
}

func countOptimistic(events []reservation.CalendarEvent) int {
	n := 0
	for _, e := range events {
		if e.IsOptimistic() {
			n++
		}
	}
	return n
}

func TestRefreshDuringCreateKeepsOptimistic(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var during []reservation.CalendarEvent
	f.gw.onCreate = func() {
		// A scheduled refresh lands while the write is still unresolved.
		if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
			t.Errorf("Refresh during create: %v", err)
		}
		during = f.svc.Snapshot(1)
		f.gw.setReservations(anaRecord, `{"id": 77, "guestName": "Eva", "accommodationId": 3, "startDate": "2025-04-01", "endDate": "2025-04-03"}`)
	}
	f.gw.createResp = json.RawMessage(`{"id": 77, "guestName": "Eva", "startDate": "2025-04-01", "endDate": "2025-04-03"}`)

	if _, err := f.svc.CreateReservation(context.Background(), 1, "cred", "ana@example.com", validRequest()); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	if len(during) != 2 || countOptimistic(during) != 1 {
		t.Fatalf("events during create = %+v, want Ana plus the optimistic entry", during)
	}
	after := f.svc.Snapshot(1)
	if len(after) != 2 || countOptimistic(after) != 0 {
		t.Errorf("events after create = %+v, want Ana and Eva with no optimistic entry", after)
	}
}

func TestRefreshDuringFailedCreateStillRollsBack(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	f.gw.onCreate = func() {
		if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
			t.Errorf("Refresh during create: %v", err)
		}
	}
	f.gw.createErr = &gateway.APIError{StatusCode: http.StatusConflict, Message: "Fechas no disponibles"}

	if _, err := f.svc.CreateReservation(context.Background(), 1, "cred", "ana@example.com", validRequest()); err == nil {
		t.Fatal("expected error")
	}

	after := f.svc.Snapshot(1)
	if len(after) != 1 || countOptimistic(after) != 0 {
		t.Errorf("events after failed create = %+v, want only Ana", after)
	}
	if got := f.notifier.actions(); got[len(got)-1] != ActionRolledBack {
		t.Errorf("last notification = %s, want %s", got[len(got)-1], ActionRolledBack)
	}
}

func TestCreateReservationSuccess(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var during []reservation.CalendarEvent
	f.gw.onCreate = func() {
		during = f.svc.Snapshot(1)
		f.gw.setReservations(anaRecord, `{"id": 77, "guestName": "Eva", "accommodationId": 3, "startDate": "2025-04-01", "endDate": "2025-04-03"}`)
	}
	f.gw.createResp = json.RawMessage(`{"id": 77, "guestName": "Eva", "startDate": "2025-04-01", "endDate": "2025-04-03", "status": "PENDING"}`)

	ev, err := f.svc.CreateReservation(context.Background(), 1, "cred", "ana@example.com", validRequest())
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	if len(during) != 2 || !during[1].IsOptimistic() {
		t.Fatalf("expected optimistic event while the write is in flight, got %+v", during)
	}
	if during[1].AccommodationName != "Casa Sol" {
		t.Errorf("optimistic accommodation = %q, want Casa Sol", during[1].AccommodationName)
	}
	if ev.ID != "77" || ev.IsOptimistic() {
		t.Errorf("created id = %q, want 77", ev.ID)
	}
	if ev.AccommodationName != "Casa Sol" {
		t.Errorf("created accommodation = %q, want Casa Sol", ev.AccommodationName)
	}

	after := f.svc.Snapshot(1)
	if len(after) != 2 {
		t.Fatalf("got %d events, want 2", len(after))
	}
	for _, e := range after {
		if e.IsOptimistic() {
			t.Errorf("optimistic event %s survived the refetch", e.ID)
		}
	}

	if len(f.recorder.entries) != 1 {
		t.Fatalf("got %d activity entries, want 1", len(f.recorder.entries))
	}
	entry := f.recorder.entries[0]
	if entry.Outcome != model.OutcomeOK || entry.ReservationID != "77" || entry.Email != "ana@example.com" {
		t.Errorf("activity = %+v", entry)
	}

	want := []string{ActionReplaced, ActionOptimistic, ActionReplaced, ActionCreated}
	got := f.notifier.actions()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCreateReservationFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	f.gw.createErr = &gateway.APIError{StatusCode: http.StatusConflict, Message: "Fechas no disponibles"}

	_, err := f.svc.CreateReservation(context.Background(), 1, "cred", "ana@example.com", validRequest())
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if we.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", we.Status)
	}
	if we.Message != "Fechas no disponibles" {
		t.Errorf("message = %q", we.Message)
	}

	listing := f.svc.Events(1, reservation.Criteria{})
	if len(listing.Events) != 1 || listing.Events[0].IsOptimistic() {
		t.Errorf("events = %+v, want only the confirmed one", listing.Events)
	}
	if listing.Error != "Fechas no disponibles" {
		t.Errorf("listing error = %q", listing.Error)
	}

	if len(f.recorder.entries) != 1 || f.recorder.entries[0].Outcome != model.OutcomeError {
		t.Errorf("activity = %+v, want one error entry", f.recorder.entries)
	}
	got := f.notifier.actions()
	if got[len(got)-1] != ActionRolledBack {
		t.Errorf("last notification = %s, want rolled_back", got[len(got)-1])
	}
}

func TestCreateReservationRefetchFailureDropsOptimistic(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	f.gw.onCreate = func() {
		f.gw.setListErr(errors.New("connection reset"))
	}
	f.gw.createResp = json.RawMessage(`{"data": {"ok": true}}`)

	ev, err := f.svc.CreateReservation(context.Background(), 1, "cred", "ana@example.com", validRequest())
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if !ev.IsOptimistic() {
		t.Errorf("expected the optimistic event back when the API returns no id, got %q", ev.ID)
	}
	for _, e := range f.svc.Snapshot(1) {
		if e.IsOptimistic() {
			t.Error("optimistic event should be dropped when the refetch fails")
		}
	}
	if got := f.svc.Events(1, reservation.Criteria{}).Error; got != gateway.FallbackMessage {
		t.Errorf("error = %q, want fallback message", got)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ReservationRequest)
		field  string
	}{
		{"blank guest", func(r *model.ReservationRequest) { r.GuestName = "   " }, "guestName"},
		{"no accommodation", func(r *model.ReservationRequest) { r.AccommodationID = "" }, "accommodationId"},
		{"bad start", func(r *model.ReservationRequest) { r.StartDate = "01/04/2025" }, "startDate"},
		{"bad end", func(r *model.ReservationRequest) { r.EndDate = "2025-4-3" }, "endDate"},
		{"end before start", func(r *model.ReservationRequest) { r.EndDate = "2025-03-30" }, "endDate"},
		{"same day", func(r *model.ReservationRequest) { r.EndDate = r.StartDate }, "endDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.CreateReservation(context.Background(), 1, "cred", "a@b.c", req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
			if len(f.gw.created) != 0 {
				t.Error("invalid request reached the gateway")
			}
			if len(f.svc.Snapshot(1)) != 0 {
				t.Error("invalid request left an optimistic event")
			}
		})
	}
}

func TestCreateReservationTrimsGuest(t *testing.T) {
	f := newFixture()
	f.gw.createResp = json.RawMessage(`{"id": 5}`)
	req := validRequest()
	req.GuestName = "  Eva  "

	ev, err := f.svc.CreateReservation(context.Background(), 1, "cred", "a@b.c", req)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if f.gw.created[0].GuestName != "Eva" {
		t.Errorf("sent guest = %q, want trimmed", f.gw.created[0].GuestName)
	}
	if ev.GuestName != "Eva" {
		t.Errorf("guest = %q, want Eva from the request", ev.GuestName)
	}
}

func TestCreateReservationSerializedPerView(t *testing.T) {
	f := newFixture()
	f.gw.createResp = json.RawMessage(`{"id": 5}`)

	var mu sync.Mutex
	maxOptimistic := 0
	f.gw.onCreate = func() {
		n := 0
		for _, e := range f.svc.Snapshot(1) {
			if e.IsOptimistic() {
				n++
			}
		}
		mu.Lock()
		if n > maxOptimistic {
			maxOptimistic = n
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.CreateReservation(context.Background(), 1, "cred", "a@b.c", validRequest())
		}()
	}
	wg.Wait()

	if maxOptimistic != 1 {
		t.Errorf("saw %d optimistic events at once, want 1", maxOptimistic)
	}
}

func TestCancelReservation(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(luisRecord)
	if err := f.svc.Refresh(context.Background(), 1, "cred", ""); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := f.svc.CancelReservation(context.Background(), 1, "cred", "ana@example.com", "2"); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if len(f.gw.statusCalls) != 1 || f.gw.statusCalls[0] != "2:CANCELLED" {
		t.Errorf("status calls = %v", f.gw.statusCalls)
	}
	entry := f.recorder.entries[0]
	if entry.Action != model.ActionCancel || entry.Outcome != model.OutcomeOK || entry.AccommodationID != "4" {
		t.Errorf("activity = %+v", entry)
	}
	if f.gw.listCalls != 2 {
		t.Errorf("listCalls = %d, want a refetch after cancel", f.gw.listCalls)
	}
}

func TestCancelReservationErrors(t *testing.T) {
	f := newFixture()

	err := f.svc.CancelReservation(context.Background(), 1, "cred", "a@b.c", reservation.NewTempID())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError for temp id", err)
	}

	f.gw.statusErr = &gateway.APIError{StatusCode: 500}
	err = f.svc.CancelReservation(context.Background(), 1, "cred", "a@b.c", "2")
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if we.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", we.Status)
	}
	if we.Message != gateway.FallbackMessage {
		t.Errorf("message = %q", we.Message)
	}
	if f.recorder.entries[0].Outcome != model.OutcomeError {
		t.Errorf("activity = %+v", f.recorder.entries[0])
	}
}

func TestAvailability(t *testing.T) {
	f := newFixture()
	f.gw.availability = []json.RawMessage{json.RawMessage(anaRecord)}

	events, err := f.svc.Availability(context.Background(), "cred", "3", "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(events) != 1 || events[0].GuestName != "Ana" {
		t.Errorf("events = %+v", events)
	}

	_, err = f.svc.Availability(context.Background(), "cred", "3", "2025-03-31", "2025-03-01")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want *ValidationError for reversed range", err)
	}
}

func TestForgetAndSessions(t *testing.T) {
	f := newFixture()
	f.gw.setReservations(anaRecord)
	for _, id := range []int64{3, 1, 2} {
		if err := f.svc.Refresh(context.Background(), id, "cred", ""); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}

	got := f.svc.Sessions()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Sessions = %v, want [1 2 3]", got)
	}

	f.svc.Forget(2)
	if got := f.svc.Sessions(); len(got) != 2 {
		t.Errorf("Sessions after Forget = %v", got)
	}
	if f.svc.Loaded(2) {
		t.Error("forgotten view should not be loaded")
	}
}

func TestUpstreamStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&gateway.APIError{StatusCode: 400}, 400},
		{&gateway.APIError{StatusCode: 422}, 422},
		{&gateway.APIError{StatusCode: 503}, http.StatusBadGateway},
		{gateway.ErrNoCredential, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("dial tcp: refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := UpstreamStatus(tt.err); got != tt.want {
			t.Errorf("UpstreamStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
