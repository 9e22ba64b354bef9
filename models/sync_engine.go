package models

import (
	"context"
	"database/sql"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Syncer reconciles the local store with a remote store. One call to RunSync
// performs a full bidirectional pass over all three collections. Passes are
// idempotent: running against an unchanged pair of stores makes no writes
// beyond the first pass, and repeated passes converge both sides.
type Syncer struct {
	local    *Store
	remote   RemoteStore
	identity IdentityProvider
}

func NewSyncer(local *Store, remote RemoteStore, identity IdentityProvider) *Syncer {
	return &Syncer{local: local, remote: remote, identity: identity}
}

// RunSync runs one full sync pass. It returns false with no error when the
// device is signed out, which callers treat as a quiet no-op.
func (sy *Syncer) RunSync(ctx context.Context) (ran bool, err error) {
	ident, err := sy.identity.CurrentIdentity(ctx)
	if err != nil {
		return false, serr.Wrap(err, "failed to resolve sync identity")
	}
	if ident == "" {
		return false, nil
	}

	// The collections are independent; the fixed order keeps passes
	// deterministic for testing and log reading.
	if err = sy.syncFunctions(ctx); err != nil {
		return true, err
	}
	if err = sy.syncOptions(ctx, OptionDBMS); err != nil {
		return true, err
	}
	if err = sy.syncOptions(ctx, OptionTag); err != nil {
		return true, err
	}
	return true, nil
}

// ==================================================================
// Functions collection
// ==================================================================

// syncFunctions runs the four phases over the functions collection:
// push new, push updates, pull new, pull updates. Both sides are snapshotted
// once at the start of the pass; anything either side changes mid-pass is
// reconciled on the next pass.
func (sy *Syncer) syncFunctions(ctx context.Context) error {
	locals, err := sy.local.AllFunctions()
	if err != nil {
		return err
	}
	remotes, err := sy.remote.ListFunctions(ctx)
	if err != nil {
		return serr.Wrap(err, "failed to list remote functions")
	}

	remoteByID := make(map[string]RemoteFunction, len(remotes))
	for _, r := range remotes {
		remoteByID[r.ID] = r
	}

	linked := make(map[string]int64) // remote id -> local id
	localByID := make(map[int64]*Function, len(locals))
	for i := range locals {
		f := &locals[i]
		localByID[f.ID] = f
		if f.RemoteID.Valid {
			linked[f.RemoteID.String] = f.ID
		}
	}

	// Records pushed during this pass are absent from the remote snapshot and
	// already carry their full payload; the later phases skip them.
	// pushedUpdates marks phase-2 overwrites: for those the snapshot row is
	// the pre-push state, so phase 4 must not mistake it for a divergent edit.
	pushed := make(map[string]bool)
	pushedUpdates := make(map[string]bool)

	// Phase 1: push records that have never been to the remote.
	for i := range locals {
		f := &locals[i]
		if f.RemoteID.Valid {
			continue
		}
		remoteID, err := sy.remote.InsertFunction(ctx, f.toRemote())
		if err != nil {
			return serr.Wrap(err, "failed to push new function", "local_id", i64s(f.ID))
		}
		if err = sy.local.SetFunctionRemoteID(f.ID, remoteID); err != nil {
			return err
		}
		f.RemoteID = sql.NullString{String: remoteID, Valid: true}
		linked[remoteID] = f.ID
		pushed[remoteID] = true
	}

	// Phase 2: push the current state of every previously linked record.
	// A link whose target vanished from the remote is cleared so the record
	// re-enters phase 1 on the next pass.
	for i := range locals {
		f := &locals[i]
		if !f.RemoteID.Valid || pushed[f.RemoteID.String] {
			continue
		}
		if _, ok := remoteByID[f.RemoteID.String]; !ok {
			logger.Info("Remote function vanished, clearing link",
				"local_id", i64s(f.ID), "remote_id", f.RemoteID.String)
			if err = sy.local.ClearFunctionRemoteID(f.ID); err != nil {
				return err
			}
			delete(linked, f.RemoteID.String)
			f.RemoteID = sql.NullString{}
			continue
		}
		if err = sy.remote.UpdateFunction(ctx, f.toRemote()); err != nil {
			return serr.Wrap(err, "failed to push function update", "local_id", i64s(f.ID))
		}
		pushedUpdates[f.RemoteID.String] = true
	}

	// Phase 3: pull records the local store has never seen.
	for _, r := range remotes {
		if _, ok := linked[r.ID]; ok {
			continue
		}
		if _, err = sy.local.InsertFunctionFromRemote(r); err != nil {
			return err
		}
	}

	// Phase 4: pull updates into linked records, newest side winning.
	for _, r := range remotes {
		localID, ok := linked[r.ID]
		if !ok || pushed[r.ID] {
			continue
		}
		f := localByID[localID]
		if f.UpdatedAt.Equal(r.UpdatedAt) && f.IsDeleted == r.IsDeleted {
			continue
		}
		apply, resolution := ResolvePullUpdate(f.IsDeleted, r.IsDeleted, f.UpdatedAt, r.UpdatedAt)
		if apply {
			if err = sy.local.ApplyRemoteFunction(localID, r); err != nil {
				return err
			}
			continue
		}
		// A local-newer hold on a record phase 2 just overwrote is the
		// ordinary one-sided edit case, not a divergence worth auditing.
		if resolution == ResolutionLocalWins && pushedUpdates[r.ID] {
			continue
		}
		if err = sy.local.InsertSyncConflict("functions", localID, r.ID, f.toRemote(), r, resolution); err != nil {
			logger.LogErr(err, "Failed to record function sync conflict")
		}
	}

	return nil
}

// ==================================================================
// Option collections
// ==================================================================

// syncOptions runs the four phases over one option collection. Options carry
// a natural key, the name, so first contact between two devices that created
// the same option independently merges the copies instead of duplicating them.
func (sy *Syncer) syncOptions(ctx context.Context, kind OptionKind) error {
	locals, err := sy.local.AllOptions(kind)
	if err != nil {
		return err
	}
	remotes, err := sy.remote.ListOptions(ctx, kind)
	if err != nil {
		return serr.Wrap(err, "failed to list remote options", "kind", string(kind))
	}

	remoteByID := make(map[string]RemoteOption, len(remotes))
	remoteByName := make(map[string]RemoteOption, len(remotes))
	for _, r := range remotes {
		remoteByID[r.ID] = r
		// Prefer a live row when a live and a tombstoned row share a name.
		if prev, ok := remoteByName[r.Name]; !ok || prev.IsDeleted {
			remoteByName[r.Name] = r
		}
	}

	linked := make(map[string]int64)
	localByID := make(map[int64]*Option, len(locals))
	for i := range locals {
		o := &locals[i]
		localByID[o.ID] = o
		if o.RemoteID.Valid {
			linked[o.RemoteID.String] = o.ID
		}
	}

	pushed := make(map[string]bool)
	pushedUpdates := make(map[string]bool)

	// merge links an unlinked local option to an existing remote row with the
	// same name, then reconciles the payloads by freshness right away.
	merge := func(o *Option, r RemoteOption) error {
		if err := sy.local.SetOptionRemoteID(kind, o.ID, r.ID); err != nil {
			return err
		}
		o.RemoteID = sql.NullString{String: r.ID, Valid: true}
		linked[r.ID] = o.ID
		pushed[r.ID] = true

		apply, _ := ResolvePullUpdate(o.IsDeleted, r.IsDeleted, o.UpdatedAt, r.UpdatedAt)
		if apply {
			return sy.local.ApplyRemoteOption(kind, o.ID, r)
		}
		return sy.remote.UpdateOption(ctx, kind, o.toRemote())
	}

	// Phase 1: push never-synced options, merging by name on first contact.
	for i := range locals {
		o := &locals[i]
		if o.RemoteID.Valid {
			continue
		}
		if r, ok := remoteByName[o.Name]; ok {
			if err = merge(o, r); err != nil {
				return err
			}
			continue
		}
		remoteID, err := sy.remote.InsertOption(ctx, kind, o.toRemote())
		if err != nil {
			return serr.Wrap(err, "failed to push new option", "kind", string(kind), "name", o.Name)
		}
		if err = sy.local.SetOptionRemoteID(kind, o.ID, remoteID); err != nil {
			return err
		}
		o.RemoteID = sql.NullString{String: remoteID, Valid: true}
		linked[remoteID] = o.ID
		pushed[remoteID] = true
	}

	// Phase 2: push updates for linked options; re-link by name before giving
	// up on a dangling link.
	for i := range locals {
		o := &locals[i]
		if !o.RemoteID.Valid || pushed[o.RemoteID.String] {
			continue
		}
		if _, ok := remoteByID[o.RemoteID.String]; !ok {
			if r, ok2 := remoteByName[o.Name]; ok2 && linked[r.ID] == 0 {
				logger.Info("Re-linking option by name after remote id vanished",
					"kind", string(kind), "name", o.Name)
				delete(linked, o.RemoteID.String)
				if err = merge(o, r); err != nil {
					return err
				}
				continue
			}
			logger.Info("Remote option vanished, clearing link",
				"kind", string(kind), "local_id", i64s(o.ID))
			if err = sy.local.ClearOptionRemoteID(kind, o.ID); err != nil {
				return err
			}
			delete(linked, o.RemoteID.String)
			o.RemoteID = sql.NullString{}
			continue
		}
		if err = sy.remote.UpdateOption(ctx, kind, o.toRemote()); err != nil {
			return serr.Wrap(err, "failed to push option update", "kind", string(kind), "name", o.Name)
		}
		pushedUpdates[o.RemoteID.String] = true
	}

	// Phase 3: pull never-seen remote options.
	for _, r := range remotes {
		if _, ok := linked[r.ID]; ok {
			continue
		}
		if _, err = sy.local.InsertOptionFromRemote(kind, r); err != nil {
			return err
		}
	}

	// Phase 4: pull updates into linked options.
	for _, r := range remotes {
		localID, ok := linked[r.ID]
		if !ok || pushed[r.ID] {
			continue
		}
		o := localByID[localID]
		if o == nil {
			continue
		}
		if o.UpdatedAt.Equal(r.UpdatedAt) && o.IsDeleted == r.IsDeleted {
			continue
		}
		apply, resolution := ResolvePullUpdate(o.IsDeleted, r.IsDeleted, o.UpdatedAt, r.UpdatedAt)
		if apply {
			if err = sy.local.ApplyRemoteOption(kind, localID, r); err != nil {
				return err
			}
			continue
		}
		if resolution == ResolutionLocalWins && pushedUpdates[r.ID] {
			continue
		}
		if err = sy.local.InsertSyncConflict(kind.Table(), localID, r.ID, o.toRemote(), r, resolution); err != nil {
			logger.LogErr(err, "Failed to record option sync conflict")
		}
	}

	return nil
}
