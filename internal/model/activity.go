package model

import "time"

const (
	ActionCreate = "create"
	ActionCancel = "cancel"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Activity is one recorded reservation write attempt.
type Activity struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Action          string    `json:"action"`
	ReservationID   string    `json:"reservation_id"`
	AccommodationID string    `json:"accommodation_id"`
	Outcome         string    `json:"outcome"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}
