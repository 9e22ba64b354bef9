package models

import (
	"database/sql"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// migrateDB creates all tables, sequences, and indexes on a database handle.
// Every statement is idempotent so the migration can run on each startup.
func migrateDB(db *sql.DB) error {
	// Sequences for auto-incrementing local ids in DuckDB
	sequences := []string{
		"CREATE SEQUENCE IF NOT EXISTS functions_id_seq START 1",
		"CREATE SEQUENCE IF NOT EXISTS dbms_options_id_seq START 1",
		"CREATE SEQUENCE IF NOT EXISTS tag_options_id_seq START 1",
		"CREATE SEQUENCE IF NOT EXISTS sync_conflicts_id_seq START 1",
	}

	for _, seqSQL := range sequences {
		if _, err := db.Exec(seqSQL); err != nil {
			logger.LogErr(err, "failed to create sequence", "sql", seqSQL)
			// Continue even if sequence exists
		}
	}

	// Local function records. remote_id stays NULL until the record has been
	// pushed to or pulled from the hub at least once; is_deleted is the
	// tombstone flag — rows are never hard-deleted once sync is in play.
	functionsTableSQL := `
	CREATE TABLE IF NOT EXISTS functions (
		id BIGINT PRIMARY KEY DEFAULT nextval('functions_id_seq'),
		remote_id VARCHAR,
		name VARCHAR NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		"usage" TEXT NOT NULL DEFAULT '',
		dbms TEXT NOT NULL DEFAULT '[]',  -- JSON array of DBMS names
		tags TEXT NOT NULL DEFAULT '[]',  -- JSON array of tags
		is_deleted BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(functionsTableSQL); err != nil {
		return serr.Wrap(err, "failed to create functions table")
	}

	// Option collections: DBMS names and free-form tags. Name is unique among
	// non-deleted rows per collection — enforced in code, not by constraint,
	// because a tombstoned row may share a name with a live one.
	for _, table := range []string{"dbms_options", "tag_options"} {
		optionTableSQL := `
		CREATE TABLE IF NOT EXISTS ` + table + ` (
			id BIGINT PRIMARY KEY DEFAULT nextval('` + table + `_id_seq'),
			remote_id VARCHAR,
			name VARCHAR NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
		if _, err := db.Exec(optionTableSQL); err != nil {
			return serr.Wrap(err, "failed to create option table: "+table)
		}
	}

	// Per-hub sync state: durable device identity, cached auth token, and
	// last-sync bookkeeping. Keyed by hub URL.
	syncStateTableSQL := `
	CREATE TABLE IF NOT EXISTS sync_state (
		hub_url VARCHAR PRIMARY KEY,
		device_id VARCHAR NOT NULL,
		auth_token VARCHAR,
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(syncStateTableSQL); err != nil {
		return serr.Wrap(err, "failed to create sync_state table")
	}

	// Conflict audit trail — every pull-phase arbitration where the two sides
	// disagreed on content is recorded here for later diagnosis.
	syncConflictsTableSQL := `
	CREATE TABLE IF NOT EXISTS sync_conflicts (
		id BIGINT PRIMARY KEY DEFAULT nextval('sync_conflicts_id_seq'),
		collection VARCHAR NOT NULL,
		local_id BIGINT NOT NULL,
		remote_id VARCHAR NOT NULL,
		local_state TEXT,
		remote_state TEXT,
		diff TEXT,
		resolution VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(syncConflictsTableSQL); err != nil {
		return serr.Wrap(err, "failed to create sync_conflicts table")
	}

	// Hub-side storage: per-user rows for the three collections with
	// server-assigned uuid identifiers. Present on every database so a spoke
	// can be promoted to a hub without a schema change.
	if err := migrateHubTables(db); err != nil {
		return err
	}

	// Hub accounts
	usersTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		guid VARCHAR PRIMARY KEY,
		username VARCHAR UNIQUE NOT NULL,
		password_hash VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(usersTableSQL); err != nil {
		return serr.Wrap(err, "failed to create users table")
	}

	// Secondary indexes only on columns that are never updated: DuckDB runs
	// an UPDATE of an indexed column as delete+insert and fails the primary
	// key check on the re-insert. name and remote_id change over a record's
	// life, so the local collections stay unindexed and are scanned instead.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sync_conflicts_local ON sync_conflicts(collection, local_id)",
		"CREATE INDEX IF NOT EXISTS idx_hub_functions_user ON hub_functions(user_guid)",
		"CREATE INDEX IF NOT EXISTS idx_hub_dbms_options_user ON hub_dbms_options(user_guid)",
		"CREATE INDEX IF NOT EXISTS idx_hub_tag_options_user ON hub_tag_options(user_guid)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			logger.LogErr(err, "failed to create index", "sql", indexSQL)
			// Continue with other indexes even if one fails
		}
	}

	return nil
}

// migrateHubTables creates the hub-side row storage for the three synced
// collections.
func migrateHubTables(db *sql.DB) error {
	hubFunctionsSQL := `
	CREATE TABLE IF NOT EXISTS hub_functions (
		id VARCHAR PRIMARY KEY,
		user_guid VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		"usage" TEXT NOT NULL DEFAULT '',
		dbms TEXT NOT NULL DEFAULT '[]',
		tags TEXT NOT NULL DEFAULT '[]',
		is_deleted BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

	if _, err := db.Exec(hubFunctionsSQL); err != nil {
		return serr.Wrap(err, "failed to create hub_functions table")
	}

	for _, table := range []string{"hub_dbms_options", "hub_tag_options"} {
		hubOptionSQL := `
		CREATE TABLE IF NOT EXISTS ` + table + ` (
			id VARCHAR PRIMARY KEY,
			user_guid VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
		if _, err := db.Exec(hubOptionSQL); err != nil {
			return serr.Wrap(err, "failed to create hub option table: "+table)
		}
	}

	return nil
}
