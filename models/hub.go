package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Hub Storage
//
// Row storage for the hub role: per-account copies of the three collections
// with server-assigned uuid identifiers. Every operation is scoped to the
// authenticated account's guid, so accounts never see each other's rows.
// ============================================================================

// HubListFunctions returns an account's full function snapshot, tombstones
// included.
func (s *Store) HubListFunctions(userGUID string) ([]RemoteFunction, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, "usage", dbms, tags, is_deleted, created_at, updated_at
		 FROM hub_functions WHERE user_guid = ? ORDER BY id`, userGUID,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list hub functions")
	}
	defer rows.Close()

	var result []RemoteFunction
	for rows.Next() {
		var rf RemoteFunction
		var dbms, tags string
		err = rows.Scan(&rf.ID, &rf.Name, &rf.Description, &rf.Usage,
			&dbms, &tags, &rf.IsDeleted, &rf.CreatedAt, &rf.UpdatedAt)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan hub function")
		}
		rf.DBMS = decodeStringList(dbms)
		rf.Tags = decodeStringList(tags)
		result = append(result, rf)
	}
	if err = rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating hub functions")
	}
	return result, nil
}

// HubInsertFunction stores a pushed function under a fresh server-assigned id
// and returns that id. The client's timestamps are preserved so freshness
// comparisons on other devices stay meaningful.
func (s *Store) HubInsertFunction(userGUID string, rf RemoteFunction) (string, error) {
	id := uuid.NewString()
	if rf.CreatedAt.IsZero() {
		rf.CreatedAt = time.Now().UTC()
	}
	if rf.UpdatedAt.IsZero() {
		rf.UpdatedAt = rf.CreatedAt
	}

	_, err := s.db.Exec(
		`INSERT INTO hub_functions (id, user_guid, name, description, "usage", dbms, tags, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userGUID, rf.Name, rf.Description, rf.Usage,
		encodeStringList(rf.DBMS), encodeStringList(rf.Tags),
		rf.IsDeleted, rf.CreatedAt.UTC(), rf.UpdatedAt.UTC(),
	)
	if err != nil {
		return "", serr.Wrap(err, "failed to insert hub function")
	}
	return id, nil
}

// HubUpdateFunction replaces the payload of an account's function row.
// Returns false when the row does not exist for this account.
func (s *Store) HubUpdateFunction(userGUID string, rf RemoteFunction) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE hub_functions SET name = ?, description = ?, "usage" = ?, dbms = ?, tags = ?,
		 is_deleted = ?, updated_at = ? WHERE id = ? AND user_guid = ?`,
		rf.Name, rf.Description, rf.Usage,
		encodeStringList(rf.DBMS), encodeStringList(rf.Tags),
		rf.IsDeleted, rf.UpdatedAt.UTC(), rf.ID, userGUID,
	)
	if err != nil {
		return false, serr.Wrap(err, "failed to update hub function")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, serr.Wrap(err, "failed to check hub function update")
	}
	return n > 0, nil
}

// HubListOptions returns an account's full option snapshot for one collection.
func (s *Store) HubListOptions(userGUID string, kind OptionKind) ([]RemoteOption, error) {
	rows, err := s.db.Query(
		`SELECT id, name, is_deleted, created_at, updated_at FROM `+kind.HubTable()+
			` WHERE user_guid = ? ORDER BY id`, userGUID,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list hub options")
	}
	defer rows.Close()

	var result []RemoteOption
	for rows.Next() {
		var ro RemoteOption
		err = rows.Scan(&ro.ID, &ro.Name, &ro.IsDeleted, &ro.CreatedAt, &ro.UpdatedAt)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan hub option")
		}
		result = append(result, ro)
	}
	if err = rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating hub options")
	}
	return result, nil
}

// HubInsertOption stores a pushed option under a fresh server-assigned id.
func (s *Store) HubInsertOption(userGUID string, kind OptionKind, ro RemoteOption) (string, error) {
	id := uuid.NewString()
	if ro.CreatedAt.IsZero() {
		ro.CreatedAt = time.Now().UTC()
	}
	if ro.UpdatedAt.IsZero() {
		ro.UpdatedAt = ro.CreatedAt
	}

	_, err := s.db.Exec(
		`INSERT INTO `+kind.HubTable()+` (id, user_guid, name, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userGUID, ro.Name, ro.IsDeleted, ro.CreatedAt.UTC(), ro.UpdatedAt.UTC(),
	)
	if err != nil {
		return "", serr.Wrap(err, "failed to insert hub option")
	}
	return id, nil
}

// HubUpdateOption replaces the payload of an account's option row.
// Returns false when the row does not exist for this account.
func (s *Store) HubUpdateOption(userGUID string, kind OptionKind, ro RemoteOption) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE `+kind.HubTable()+` SET name = ?, is_deleted = ?, updated_at = ?
		 WHERE id = ? AND user_guid = ?`,
		ro.Name, ro.IsDeleted, ro.UpdatedAt.UTC(), ro.ID, userGUID,
	)
	if err != nil {
		return false, serr.Wrap(err, "failed to update hub option")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, serr.Wrap(err, "failed to check hub option update")
	}
	return n > 0, nil
}
