package models

import (
	"database/sql"
	"time"

	"github.com/rohanthewiz/serr"
)

// OptionKind selects one of the two option collections. The collections have
// identical shape and sync behavior; only the table differs.
type OptionKind string

const (
	OptionDBMS OptionKind = "dbms"
	OptionTag  OptionKind = "tag"
)

// Table returns the local table name for the kind.
func (k OptionKind) Table() string {
	if k == OptionDBMS {
		return "dbms_options"
	}
	return "tag_options"
}

// HubTable returns the hub-side table name for the kind.
func (k OptionKind) HubTable() string {
	return "hub_" + k.Table()
}

// Valid reports whether the kind is one of the two known collections.
func (k OptionKind) Valid() bool {
	return k == OptionDBMS || k == OptionTag
}

// Option is a named tag-like record in either option collection.
// Among non-deleted rows of a collection, Name is unique.
type Option struct {
	ID        int64          `db:"id" json:"id"`
	RemoteID  sql.NullString `db:"remote_id" json:"-"`
	Name      string         `db:"name" json:"name"`
	IsDeleted bool           `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

const optionColumns = `id, remote_id, name, is_deleted, created_at, updated_at`

// CreateOption adds a named option to the collection. If a non-deleted row
// with the name already exists, that row is returned unchanged. If only a
// tombstoned row carries the name, it is revived in place — this preserves
// its remote link and keeps the name-uniqueness invariant among live rows.
func (s *Store) CreateOption(kind OptionKind, name string) (*Option, error) {
	existing, err := s.getOptionByName(kind, name)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if !existing.IsDeleted {
			return existing, nil
		}
		_, err = s.db.Exec(
			`UPDATE `+kind.Table()+` SET is_deleted = false, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), existing.ID,
		)
		if err != nil {
			return nil, serr.Wrap(err, "failed to revive option")
		}
		return s.GetOptionByID(kind, existing.ID)
	}

	now := time.Now().UTC()
	var id int64
	err = s.db.QueryRow(
		`INSERT INTO `+kind.Table()+` (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`,
		name, now, now,
	).Scan(&id)
	if err != nil {
		return nil, serr.Wrap(err, "failed to insert option")
	}

	return s.GetOptionByID(kind, id)
}

// DeleteOption tombstones an option.
func (s *Store) DeleteOption(kind OptionKind, id int64) error {
	_, err := s.db.Exec(
		`UPDATE `+kind.Table()+` SET is_deleted = true, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return serr.Wrap(err, "failed to delete option")
}

// GetOptionByID returns an option by local id, deleted or not.
func (s *Store) GetOptionByID(kind OptionKind, id int64) (*Option, error) {
	row := s.db.QueryRow(`SELECT `+optionColumns+` FROM `+kind.Table()+` WHERE id = ?`, id)

	o, err := scanOption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get option by id")
	}
	return o, nil
}

// ListOptions returns the non-deleted options for a collection, sorted by name.
func (s *Store) ListOptions(kind OptionKind) ([]Option, error) {
	rows, err := s.db.Query(
		`SELECT ` + optionColumns + ` FROM ` + kind.Table() + ` WHERE NOT is_deleted ORDER BY name`,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list options")
	}
	defer rows.Close()

	return collectOptions(rows)
}

// AllOptions returns the full collection snapshot, tombstones included.
func (s *Store) AllOptions(kind OptionKind) ([]Option, error) {
	rows, err := s.db.Query(`SELECT ` + optionColumns + ` FROM ` + kind.Table() + ` ORDER BY id`)
	if err != nil {
		return nil, serr.Wrap(err, "failed to snapshot options")
	}
	defer rows.Close()

	return collectOptions(rows)
}

// SetOptionRemoteID persists the remote link for an option.
func (s *Store) SetOptionRemoteID(kind OptionKind, id int64, remoteID string) error {
	_, err := s.db.Exec(`UPDATE `+kind.Table()+` SET remote_id = ? WHERE id = ?`, remoteID, id)
	return serr.Wrap(err, "failed to set option remote id")
}

// ClearOptionRemoteID drops a dangling remote link.
func (s *Store) ClearOptionRemoteID(kind OptionKind, id int64) error {
	_, err := s.db.Exec(`UPDATE `+kind.Table()+` SET remote_id = NULL WHERE id = ?`, id)
	return serr.Wrap(err, "failed to clear option remote id")
}

// getOptionByName finds a row by exact name, preferring a live row over a
// tombstoned one when both exist.
func (s *Store) getOptionByName(kind OptionKind, name string) (*Option, error) {
	row := s.db.QueryRow(
		`SELECT `+optionColumns+` FROM `+kind.Table()+` WHERE name = ? ORDER BY is_deleted LIMIT 1`,
		name,
	)

	o, err := scanOption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get option by name")
	}
	return o, nil
}

func scanOption(row rowScanner) (*Option, error) {
	o := &Option{}
	err := row.Scan(&o.ID, &o.RemoteID, &o.Name, &o.IsDeleted, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func collectOptions(rows *sql.Rows) ([]Option, error) {
	var result []Option
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan option")
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating options")
	}
	return result, nil
}
