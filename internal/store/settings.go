package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const VaultSaltKey = "vault_salt"

var ErrSettingNotFound = errors.New("setting not found")

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetOrCreate returns the value stored under key, storing the result of
// create first if the key is absent. Concurrent callers agree on one value.
func (s *SettingsStore) GetOrCreate(key string, create func() (string, error)) (string, error) {
	value, err := s.Get(key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return "", err
	}

	value, err = create()
	if err != nil {
		return "", fmt.Errorf("create setting %q: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert setting %q: %w", key, err)
	}
	return s.Get(key)
}
