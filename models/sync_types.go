package models

import (
	"context"
	"time"

	"github.com/rohanthewiz/serr"
)

// ==================================================================
// Remote store contract
// ==================================================================

// RemoteFunction is the wire shape of a function record on the remote side.
// The ID is assigned by the remote store and never changes once set.
type RemoteFunction struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Usage       string    `json:"usage"`
	DBMS        []string  `json:"dbms"`
	Tags        []string  `json:"tags"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RemoteOption is the wire shape of an option record on the remote side.
type RemoteOption struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemoteStore is the remote side of a sync pass. Implementations scope all
// operations to the authenticated account. List calls return full snapshots,
// tombstones included. Insert returns the remote-assigned id; Update is keyed
// by that id and replaces the record's payload fields wholesale.
type RemoteStore interface {
	ListFunctions(ctx context.Context) ([]RemoteFunction, error)
	InsertFunction(ctx context.Context, fn RemoteFunction) (string, error)
	UpdateFunction(ctx context.Context, fn RemoteFunction) error

	ListOptions(ctx context.Context, kind OptionKind) ([]RemoteOption, error)
	InsertOption(ctx context.Context, kind OptionKind, opt RemoteOption) (string, error)
	UpdateOption(ctx context.Context, kind OptionKind, opt RemoteOption) error
}

// IdentityProvider reports the account the device is signed in as.
// An empty identity means signed out, in which case sync is a no-op.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (string, error)
}

// ==================================================================
// Local/remote conversions
// ==================================================================

// toRemote maps a local function onto the wire shape. The remote id is taken
// from the link column and may be empty for not-yet-pushed records.
func (f *Function) toRemote() RemoteFunction {
	return RemoteFunction{
		ID:          f.RemoteID.String,
		Name:        f.Name,
		Description: f.Description,
		Usage:       f.Usage,
		DBMS:        f.GetDBMS(),
		Tags:        f.GetTags(),
		IsDeleted:   f.IsDeleted,
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}
}

func (o *Option) toRemote() RemoteOption {
	return RemoteOption{
		ID:        o.RemoteID.String,
		Name:      o.Name,
		IsDeleted: o.IsDeleted,
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}
}

// InsertFunctionFromRemote materializes a pulled function locally, already
// linked to its remote id. Timestamps are carried over so later passes can
// compare freshness without skew.
func (s *Store) InsertFunctionFromRemote(rf RemoteFunction) (*Function, error) {
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO functions (remote_id, name, description, "usage", dbms, tags, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		rf.ID, rf.Name, rf.Description, rf.Usage,
		encodeStringList(rf.DBMS), encodeStringList(rf.Tags),
		rf.IsDeleted, rf.CreatedAt.UTC(), rf.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, serr.Wrap(err, "failed to insert pulled function")
	}
	return s.GetFunctionByID(id)
}

// ApplyRemoteFunction overwrites a linked local function with the remote
// payload, timestamps included.
func (s *Store) ApplyRemoteFunction(localID int64, rf RemoteFunction) error {
	_, err := s.db.Exec(
		`UPDATE functions SET name = ?, description = ?, "usage" = ?, dbms = ?, tags = ?,
		 is_deleted = ?, updated_at = ? WHERE id = ?`,
		rf.Name, rf.Description, rf.Usage,
		encodeStringList(rf.DBMS), encodeStringList(rf.Tags),
		rf.IsDeleted, rf.UpdatedAt.UTC(), localID,
	)
	return serr.Wrap(err, "failed to apply pulled function")
}

// InsertOptionFromRemote materializes a pulled option locally, linked to its
// remote id.
func (s *Store) InsertOptionFromRemote(kind OptionKind, ro RemoteOption) (*Option, error) {
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO `+kind.Table()+` (remote_id, name, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		ro.ID, ro.Name, ro.IsDeleted, ro.CreatedAt.UTC(), ro.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, serr.Wrap(err, "failed to insert pulled option")
	}
	return s.GetOptionByID(kind, id)
}

// ApplyRemoteOption overwrites a linked local option with the remote payload.
func (s *Store) ApplyRemoteOption(kind OptionKind, localID int64, ro RemoteOption) error {
	_, err := s.db.Exec(
		`UPDATE `+kind.Table()+` SET name = ?, is_deleted = ?, updated_at = ? WHERE id = ?`,
		ro.Name, ro.IsDeleted, ro.UpdatedAt.UTC(), localID,
	)
	return serr.Wrap(err, "failed to apply pulled option")
}
