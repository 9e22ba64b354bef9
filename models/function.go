package models

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rohanthewiz/serr"
)

// Function represents a SQL function record in the local store.
// DBMS and Tags are stored as JSON arrays in TEXT columns.
type Function struct {
	ID          int64          `db:"id" json:"id"`
	RemoteID    sql.NullString `db:"remote_id" json:"-"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Usage       string         `db:"usage" json:"usage"`
	DBMS        string         `db:"dbms" json:"-"`
	Tags        string         `db:"tags" json:"-"`
	IsDeleted   bool           `db:"is_deleted" json:"is_deleted"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// FunctionInput is the request shape for creating or updating a function.
type FunctionInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Usage       string   `json:"usage"`
	DBMS        []string `json:"dbms"`
	Tags        []string `json:"tags"`
}

// FunctionOutput is the JSON-friendly response shape with the JSON-array
// columns decoded and the remote link exposed as a plain string.
type FunctionOutput struct {
	ID          int64     `json:"id"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Usage       string    `json:"usage"`
	DBMS        []string  `json:"dbms"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FunctionFilter narrows ListFunctions results. Query matches name, tags,
// and dbms case-insensitively; DBMS and Tag require exact membership.
type FunctionFilter struct {
	Query string
	DBMS  string
	Tag   string
}

// GetDBMS decodes the dbms JSON array column.
func (f *Function) GetDBMS() []string {
	return decodeStringList(f.DBMS)
}

// GetTags decodes the tags JSON array column.
func (f *Function) GetTags() []string {
	return decodeStringList(f.Tags)
}

// ToOutput converts a Function to its response shape.
func (f *Function) ToOutput() FunctionOutput {
	out := FunctionOutput{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Usage:       f.Usage,
		DBMS:        f.GetDBMS(),
		Tags:        f.GetTags(),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.RemoteID.Valid {
		out.RemoteID = f.RemoteID.String
	}
	return out
}

func decodeStringList(jsonArr string) []string {
	list := []string{}
	if jsonArr != "" {
		_ = json.Unmarshal([]byte(jsonArr), &list)
	}
	return list
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

const functionColumns = `id, remote_id, name, description, "usage", dbms, tags, is_deleted, created_at, updated_at`

// CreateFunction inserts a new local function with no remote link.
// The local id is assigned by the store and returned on the record.
func (s *Store) CreateFunction(in FunctionInput) (*Function, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO functions (name, description, "usage", dbms, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRow(query, in.Name, in.Description, in.Usage,
		encodeStringList(in.DBMS), encodeStringList(in.Tags), now, now).Scan(&id)
	if err != nil {
		return nil, serr.Wrap(err, "failed to insert function")
	}

	return s.GetFunctionByID(id)
}

// UpdateFunction overwrites a function's user-editable fields and bumps
// updated_at, which Phase 4 of the sync engine uses for arbitration.
func (s *Store) UpdateFunction(id int64, in FunctionInput) (*Function, error) {
	query := `
		UPDATE functions
		SET name = ?, description = ?, "usage" = ?, dbms = ?, tags = ?, updated_at = ?
		WHERE id = ? AND NOT is_deleted
	`

	res, err := s.db.Exec(query, in.Name, in.Description, in.Usage,
		encodeStringList(in.DBMS), encodeStringList(in.Tags), time.Now().UTC(), id)
	if err != nil {
		return nil, serr.Wrap(err, "failed to update function")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	return s.GetFunctionByID(id)
}

// DeleteFunction tombstones a function. The row remains so the deletion can
// propagate to other devices on the next sync pass.
func (s *Store) DeleteFunction(id int64) error {
	_, err := s.db.Exec(
		`UPDATE functions SET is_deleted = true, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return serr.Wrap(err, "failed to delete function")
}

// GetFunctionByID returns a function by local id, deleted or not.
// Returns nil without error when no such row exists.
func (s *Store) GetFunctionByID(id int64) (*Function, error) {
	row := s.db.QueryRow(`SELECT `+functionColumns+` FROM functions WHERE id = ?`, id)

	f, err := scanFunction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get function by id")
	}
	return f, nil
}

// ListFunctions returns non-deleted functions matching the filter,
// most recently updated first. Query matching happens in Go because the
// dbms/tags columns hold JSON arrays that substring SQL would match loosely.
func (s *Store) ListFunctions(filter FunctionFilter) ([]Function, error) {
	rows, err := s.db.Query(
		`SELECT ` + functionColumns + ` FROM functions WHERE NOT is_deleted ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list functions")
	}
	defer rows.Close()

	var result []Function
	for rows.Next() {
		f, err := scanFunction(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan function")
		}
		if matchesFilter(f, filter) {
			result = append(result, *f)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating functions")
	}

	return result, nil
}

// AllFunctions returns the full collection snapshot, tombstones included.
// This is the sync engine's view of the local side.
func (s *Store) AllFunctions() ([]Function, error) {
	rows, err := s.db.Query(`SELECT ` + functionColumns + ` FROM functions ORDER BY id`)
	if err != nil {
		return nil, serr.Wrap(err, "failed to snapshot functions")
	}
	defer rows.Close()

	var result []Function
	for rows.Next() {
		f, err := scanFunction(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan function")
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating functions")
	}

	return result, nil
}

// SetFunctionRemoteID persists the remote link after a successful push or a
// name-based merge. The link never changes once set.
func (s *Store) SetFunctionRemoteID(id int64, remoteID string) error {
	_, err := s.db.Exec(`UPDATE functions SET remote_id = ? WHERE id = ?`, remoteID, id)
	return serr.Wrap(err, "failed to set function remote id")
}

// ClearFunctionRemoteID drops a dangling remote link so the record is
// re-pushed as new on the next pass.
func (s *Store) ClearFunctionRemoteID(id int64) error {
	_, err := s.db.Exec(`UPDATE functions SET remote_id = NULL WHERE id = ?`, id)
	return serr.Wrap(err, "failed to clear function remote id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFunction(row rowScanner) (*Function, error) {
	f := &Function{}
	err := row.Scan(&f.ID, &f.RemoteID, &f.Name, &f.Description, &f.Usage,
		&f.DBMS, &f.Tags, &f.IsDeleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// matchesFilter implements the list view's search semantics: the free-text
// query matches name, any tag, or any dbms entry case-insensitively; the
// DBMS and Tag filters require exact membership.
func matchesFilter(f *Function, filter FunctionFilter) bool {
	if filter.DBMS != "" && !containsString(f.GetDBMS(), filter.DBMS) {
		return false
	}
	if filter.Tag != "" && !containsString(f.GetTags(), filter.Tag) {
		return false
	}
	if filter.Query == "" {
		return true
	}

	q := strings.ToLower(filter.Query)
	if strings.Contains(strings.ToLower(f.Name), q) {
		return true
	}
	for _, t := range f.GetTags() {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	for _, d := range f.GetDBMS() {
		if strings.Contains(strings.ToLower(d), q) {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
