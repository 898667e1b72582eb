package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/alojadmin/internal/model"
)

const (
	DefaultBaseURL = "https://apibookingsaccomodations-production.up.railway.app/api"

	// FallbackMessage is shown when no more specific message is available.
	FallbackMessage = "Ocurrió un error inesperado"

	maxBodySize    = 4 << 20
	maxPlainErrLen = 200
)

// ErrNoCredential is returned by authenticated calls made without a token.
var ErrNoCredential = errors.New("no upstream credential")

// Config holds remote booking API configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-2xx answer from the booking API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UserMessage returns the most specific message for err that is safe to show
// to a console user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrNoCredential):
		return "Tu sesión ha expirado, inicia sesión de nuevo"
	case errors.Is(err, context.DeadlineExceeded):
		return "El servidor de reservas no respondió a tiempo"
	}
	return FallbackMessage
}

// Client talks to the remote booking API. Every authenticated call takes the
// bearer credential explicitly; the client holds no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a booking API client. Empty fields in cfg fall back to
// the production URL and a 15 second timeout.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Login exchanges staff credentials for an upstream bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResult, error) {
	var res model.LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/V1/login", "", body, &res); err != nil {
		return model.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return model.LoginResult{}, fmt.Errorf("login: %w", &APIError{StatusCode: http.StatusUnauthorized, Message: "Credenciales inválidas"})
	}
	if res.User == "" {
		res.User = email
	}
	return res, nil
}

// ListReservations returns the raw reservation records, scoped to one
// accommodation when accommodationID is set. A 404 yields an empty list.
func (c *Client) ListReservations(ctx context.Context, cred, accommodationID string) ([]json.RawMessage, error) {
	path := "/V1/bookings"
	if accommodationID != "" {
		path = "/V1/reservations/accommodation/" + url.PathEscape(accommodationID)
	}
	items, err := c.list(ctx, cred, path, "data", "bookings", "reservations")
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return items, nil
}

// CheckAvailability returns the raw reservation records that overlap the
// given date range for one accommodation.
func (c *Client) CheckAvailability(ctx context.Context, cred, accommodationID, start, end string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("start_date", start)
	q.Set("end_date", end)
	path := "/V1/bookings/calendar/" + url.PathEscape(accommodationID) + "?" + q.Encode()
	items, err := c.list(ctx, cred, path, "data", "bookings", "reservations")
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	return items, nil
}

// CreateReservation persists a new reservation and returns the created record
// as sent back by the API, which may be empty.
func (c *Client) CreateReservation(ctx context.Context, cred string, req model.ReservationRequest) (json.RawMessage, error) {
	if cred == "" {
		return nil, ErrNoCredential
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/V1/booking", cred, req, &raw); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	return unwrapObject(raw), nil
}

// UpdateReservationStatus sets the status of one reservation.
func (c *Client) UpdateReservationStatus(ctx context.Context, cred, id, status string) error {
	if cred == "" {
		return ErrNoCredential
	}
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/V1/status_booking/"+url.PathEscape(id), cred, body, nil); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	return nil
}

// ListAccommodations returns every accommodation not marked as deleted.
func (c *Client) ListAccommodations(ctx context.Context, cred string) ([]model.Accommodation, error) {
	items, err := c.list(ctx, cred, "/V1/accomodations", "data", "accommodations", "accomodations")
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}

	out := make([]model.Accommodation, 0, len(items))
	for i, item := range items {
		var a model.Accommodation
		if err := json.Unmarshal(item, &a); err != nil {
			c.logger.Warn("skip malformed accommodation", "index", i, "error", err)
			continue
		}
		if a.IsDeleted {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// GetAccommodation returns one accommodation, or nil if it does not exist.
func (c *Client) GetAccommodation(ctx context.Context, cred, id string) (*model.Accommodation, error) {
	raw, err := c.getRecord(ctx, cred, id)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get accommodation: %w", err)
	}
	var a model.Accommodation
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode accommodation: %w", err)
	}
	return &a, nil
}

// CreateAccommodation creates an accommodation and returns the stored record.
func (c *Client) CreateAccommodation(ctx context.Context, cred string, a model.Accommodation) (*model.Accommodation, error) {
	if cred == "" {
		return nil, ErrNoCredential
	}
	a.ID = ""
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/V1/accomodation", cred, a, &raw); err != nil {
		return nil, fmt.Errorf("create accommodation: %w", err)
	}
	return decodeAccommodation(unwrapObject(raw), a)
}

// UpdateAccommodation replaces the editable fields of an accommodation.
func (c *Client) UpdateAccommodation(ctx context.Context, cred, id string, a model.Accommodation) (*model.Accommodation, error) {
	if cred == "" {
		return nil, ErrNoCredential
	}
	a.ID = model.FlexID(id)
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/V1/accomodations/"+url.PathEscape(id), cred, a, &raw); err != nil {
		return nil, fmt.Errorf("update accommodation: %w", err)
	}
	return decodeAccommodation(unwrapObject(raw), a)
}

// DeleteAccommodation soft-deletes an accommodation by writing the current
// record back with isDeleted set. Fields unknown to this client are kept.
func (c *Client) DeleteAccommodation(ctx context.Context, cred, id string) error {
	raw, err := c.getRecord(ctx, cred, id)
	if err != nil {
		return fmt.Errorf("delete accommodation: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("delete accommodation: decode record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("delete accommodation: empty record")
	}
	record["isDeleted"] = true

	if err := c.do(ctx, http.MethodPut, "/V1/accomodation/"+url.PathEscape(id), cred, record, nil); err != nil {
		return fmt.Errorf("delete accommodation: %w", err)
	}
	return nil
}

func (c *Client) getRecord(ctx context.Context, cred, id string) (json.RawMessage, error) {
	if cred == "" {
		return nil, ErrNoCredential
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/V1/accomodation/"+url.PathEscape(id), cred, nil, &raw); err != nil {
		return nil, err
	}
	return unwrapObject(raw), nil
}

// list fetches a collection. The payload may be a bare array or an object
// wrapping the array under one of keys. A 404 means an empty collection.
func (c *Client) list(ctx context.Context, cred, path string, keys ...string) ([]json.RawMessage, error) {
	if cred == "" {
		return nil, ErrNoCredential
	}
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, path, cred, nil, &raw)
	if IsNotFound(err) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return unwrapList(raw, keys...)
}

func (c *Client) do(ctx context.Context, method, path, cred string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("upstream request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: extractMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractMessage picks the human readable message out of an error payload:
// the message, error or msg field, else a short plain-text body.
func extractMessage(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, key := range []string{"message", "error", "msg"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}

	text := string(data)
	if len(text) > maxPlainErrLen || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

func unwrapList(raw json.RawMessage, keys ...string) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []json.RawMessage{}, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		for _, key := range keys {
			if inner, ok := obj[key]; ok {
				return unwrapList(inner)
			}
		}
	}
	return nil, fmt.Errorf("unexpected list payload")
}

// unwrapObject returns the object under "data" when raw is such an envelope.
func unwrapObject(raw json.RawMessage) json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if d := bytes.TrimSpace(env.Data); len(d) > 0 && d[0] == '{' {
			return d
		}
	}
	return raw
}

// decodeAccommodation decodes the API answer to a write, falling back to the
// submitted record when the API answers with an empty or foreign body.
func decodeAccommodation(raw json.RawMessage, sent model.Accommodation) (*model.Accommodation, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &sent, nil
	}
	var a model.Accommodation
	if err := json.Unmarshal(raw, &a); err != nil {
		return &sent, nil
	}
	if a.Name == "" {
		a.Name = sent.Name
		a.Address = sent.Address
		a.Description = sent.Description
		a.Image = sent.Image
	}
	if a.ID == "" {
		a.ID = sent.ID
	}
	return &a, nil
}
