package models

import (
	"testing"
	"time"
)

func TestResolvePullUpdate(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	tests := []struct {
		name          string
		localDeleted  bool
		remoteDeleted bool
		localAt       time.Time
		remoteAt      time.Time
		wantApply     bool
		wantRes       string
	}{
		{"remote newer wins", false, false, older, newer, true, ResolutionRemoteWins},
		{"local newer holds", false, false, newer, older, false, ResolutionLocalWins},
		{"exact tie goes remote", false, false, older, older, true, ResolutionRemoteWins},
		{"local tombstone never revived", true, false, older, newer, false, ResolutionZombieProtected},
		{"local tombstone protected even if older", true, false, older, older, false, ResolutionZombieProtected},
		{"remote tombstone applies when newer", false, true, older, newer, true, ResolutionRemoteWins},
		{"both deleted follows timestamps", true, true, older, newer, true, ResolutionRemoteWins},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply, res := ResolvePullUpdate(tt.localDeleted, tt.remoteDeleted, tt.localAt, tt.remoteAt)
			if apply != tt.wantApply {
				t.Errorf("apply = %v, want %v", apply, tt.wantApply)
			}
			if res != tt.wantRes {
				t.Errorf("resolution = %q, want %q", res, tt.wantRes)
			}
		})
	}
}

func TestInsertAndListSyncConflicts(t *testing.T) {
	store := newTestStore(t, "conflicts.ddb")

	local := RemoteFunction{ID: "r1", Name: "LEAD", Description: "local copy"}
	remote := RemoteFunction{ID: "r1", Name: "LEAD", Description: "remote copy"}

	err := store.InsertSyncConflict("functions", 7, "r1", local, remote, ResolutionLocalWins)
	if err != nil {
		t.Fatalf("InsertSyncConflict() unexpected error: %v", err)
	}

	conflicts, err := store.ListSyncConflicts(10)
	if err != nil {
		t.Fatalf("ListSyncConflicts() unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Collection != "functions" || c.LocalID != 7 || c.RemoteID != "r1" {
		t.Errorf("unexpected conflict keys: %+v", c)
	}
	if c.Resolution != ResolutionLocalWins {
		t.Errorf("resolution = %q, want %q", c.Resolution, ResolutionLocalWins)
	}
	if c.Diff == "" {
		t.Error("expected a non-empty diff for divergent states")
	}
}
