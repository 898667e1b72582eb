package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FlexID is an identifier the upstream API sends either as a number or as a
// string. It is always held and re-encoded as a string.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string { return string(id) }

// Accommodation is a lodging unit managed through the upstream API.
type Accommodation struct {
	ID          FlexID `json:"id,omitempty"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Image       string `json:"image"`
	IsDeleted   bool   `json:"isDeleted"`
}

// Validate checks the fields the console requires before writing upstream.
// The error text is shown to console users.
func (a Accommodation) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return errors.New("El nombre es obligatorio")
	case strings.TrimSpace(a.Address) == "":
		return errors.New("La dirección es obligatoria")
	case strings.TrimSpace(a.Description) == "":
		return errors.New("La descripción es obligatoria")
	}
	return nil
}

// ReservationRequest is the upstream payload for creating a reservation.
// Dates are YYYY-MM-DD.
type ReservationRequest struct {
	GuestName       string `json:"guestName"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	AccommodationID string `json:"accommodationId"`
}
