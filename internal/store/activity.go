package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/alojadmin/internal/model"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	err := scanner.Scan(&a.ID, &a.Email, &a.Action, &a.ReservationID, &a.AccommodationID, &a.Outcome, &a.Message, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const activityCols = `id, email, action, reservation_id, accommodation_id, outcome, message, created_at`

// Record appends one entry to the activity log.
func (s *ActivityStore) Record(a model.Activity) (*model.Activity, error) {
	result, err := s.db.Exec(
		`INSERT INTO activity_log (email, action, reservation_id, accommodation_id, outcome, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Email, a.Action, a.ReservationID, a.AccommodationID, a.Outcome, a.Message, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+activityCols+` FROM activity_log WHERE id = ?`, id)
	return scanActivity(row)
}

// ListRecent returns up to limit entries, newest first. A non-positive limit
// uses the default.
func (s *ActivityStore) ListRecent(limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	rows, err := s.db.Query(
		`SELECT `+activityCols+` FROM activity_log ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
