package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
)

// SyncState is the durable per-hub sync bookkeeping for this device: a stable
// device identity, the cached auth token, and the last successful pass time.
type SyncState struct {
	HubURL     string         `db:"hub_url" json:"hub_url"`
	DeviceID   string         `db:"device_id" json:"device_id"`
	AuthToken  sql.NullString `db:"auth_token" json:"-"`
	LastSyncAt sql.NullTime   `db:"last_sync_at" json:"last_sync_at"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// GetOrCreateSyncState returns the sync state row for a hub, creating it with
// a fresh device id on first use. The device id never changes afterward.
func (s *Store) GetOrCreateSyncState(hubURL string) (*SyncState, error) {
	st, err := s.getSyncState(hubURL)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	now := time.Now().UTC()
	deviceID := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO sync_state (hub_url, device_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		hubURL, deviceID, now, now,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to create sync state")
	}
	return s.getSyncState(hubURL)
}

func (s *Store) getSyncState(hubURL string) (*SyncState, error) {
	row := s.db.QueryRow(
		`SELECT hub_url, device_id, auth_token, last_sync_at, created_at, updated_at
		 FROM sync_state WHERE hub_url = ?`, hubURL,
	)

	st := &SyncState{}
	err := row.Scan(&st.HubURL, &st.DeviceID, &st.AuthToken, &st.LastSyncAt, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get sync state")
	}
	return st, nil
}

// UpdateSyncAuthToken caches the auth token obtained from the hub so later
// runs can skip the login round trip until the token expires.
func (s *Store) UpdateSyncAuthToken(hubURL, token string) error {
	_, err := s.db.Exec(
		`UPDATE sync_state SET auth_token = ?, updated_at = ? WHERE hub_url = ?`,
		token, time.Now().UTC(), hubURL,
	)
	return serr.Wrap(err, "failed to update sync auth token")
}

// TouchLastSync records the completion time of a successful pass.
func (s *Store) TouchLastSync(hubURL string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE sync_state SET last_sync_at = ?, updated_at = ? WHERE hub_url = ?`,
		now, now, hubURL,
	)
	return serr.Wrap(err, "failed to update last sync time")
}
