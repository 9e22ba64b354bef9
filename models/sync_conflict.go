package models

import (
	"encoding/json"
	"time"

	"github.com/rohanthewiz/serr"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Resolution outcomes recorded in the conflict audit log.
const (
	ResolutionZombieProtected = "zombie_protected"
	ResolutionLocalWins       = "lww_local"
	ResolutionRemoteWins      = "lww_remote"
)

// SyncConflict is one audited pull-update decision where both sides had
// diverged and one had to win.
type SyncConflict struct {
	ID          int64     `db:"id" json:"id"`
	Collection  string    `db:"collection" json:"collection"`
	LocalID     int64     `db:"local_id" json:"local_id"`
	RemoteID    string    `db:"remote_id" json:"remote_id"`
	LocalState  string    `db:"local_state" json:"local_state"`
	RemoteState string    `db:"remote_state" json:"remote_state"`
	Diff        string    `db:"diff" json:"diff"`
	Resolution  string    `db:"resolution" json:"resolution"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ResolvePullUpdate decides whether an incoming remote record overwrites the
// linked local one. A locally tombstoned record is never revived by a live
// remote copy; the local deletion will be pushed on the next pass instead.
// Otherwise the newer side wins, with the remote winning exact ties so that
// all devices settle on the same copy.
func ResolvePullUpdate(localDeleted, remoteDeleted bool, localAt, remoteAt time.Time) (apply bool, resolution string) {
	if localDeleted && !remoteDeleted {
		return false, ResolutionZombieProtected
	}
	if localAt.After(remoteAt) {
		return false, ResolutionLocalWins
	}
	return true, ResolutionRemoteWins
}

// InsertSyncConflict records a divergent pull-update decision. Both states are
// stored as JSON along with a line diff for quick inspection. Audit failures
// are surfaced to the caller but must not abort the sync pass.
func (s *Store) InsertSyncConflict(collection string, localID int64, remoteID string,
	localState, remoteState any, resolution string) error {

	localJSON, err := json.MarshalIndent(localState, "", "  ")
	if err != nil {
		return serr.Wrap(err, "failed to marshal local state")
	}
	remoteJSON, err := json.MarshalIndent(remoteState, "", "  ")
	if err != nil {
		return serr.Wrap(err, "failed to marshal remote state")
	}

	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(string(localJSON), string(remoteJSON))
	diffText := dmp.PatchToText(patches)

	_, err = s.db.Exec(
		`INSERT INTO sync_conflicts (collection, local_id, remote_id, local_state, remote_state, diff, resolution, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		collection, localID, remoteID, string(localJSON), string(remoteJSON),
		diffText, resolution, time.Now().UTC(),
	)
	return serr.Wrap(err, "failed to insert sync conflict")
}

// ListSyncConflicts returns the most recent conflict records, newest first.
func (s *Store) ListSyncConflicts(limit int) ([]SyncConflict, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, collection, local_id, remote_id, local_state, remote_state, diff, resolution, created_at
		 FROM sync_conflicts ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list sync conflicts")
	}
	defer rows.Close()

	var result []SyncConflict
	for rows.Next() {
		var c SyncConflict
		err = rows.Scan(&c.ID, &c.Collection, &c.LocalID, &c.RemoteID,
			&c.LocalState, &c.RemoteState, &c.Diff, &c.Resolution, &c.CreatedAt)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan sync conflict")
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating sync conflicts")
	}
	return result, nil
}
