package models

import (
	"path/filepath"
	"testing"
)

// newTestStore opens a fresh store against a per-test database file.
func newTestStore(t *testing.T, name string) *Store {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFunctionCRUD(t *testing.T) {
	store := newTestStore(t, "functions.ddb")

	fn, err := store.CreateFunction(FunctionInput{
		Name:        "COALESCE",
		Description: "Returns the first non-null argument",
		Usage:       "COALESCE(a, b, c)",
		DBMS:        []string{"PostgreSQL", "MySQL"},
		Tags:        []string{"null-handling"},
	})
	if err != nil {
		t.Fatalf("CreateFunction() unexpected error: %v", err)
	}
	if fn.ID == 0 {
		t.Error("expected a store-assigned id")
	}
	if fn.RemoteID.Valid {
		t.Error("new function should have no remote link")
	}
	if got := fn.GetDBMS(); len(got) != 2 || got[0] != "PostgreSQL" {
		t.Errorf("unexpected dbms list: %v", got)
	}

	updated, err := store.UpdateFunction(fn.ID, FunctionInput{
		Name:        "COALESCE",
		Description: "First non-null argument",
		Usage:       "COALESCE(a, b)",
		DBMS:        []string{"PostgreSQL"},
		Tags:        []string{"null-handling", "conditional"},
	})
	if err != nil {
		t.Fatalf("UpdateFunction() unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("UpdateFunction() returned nil for existing function")
	}
	if !updated.UpdatedAt.After(fn.UpdatedAt) {
		t.Error("update should bump updated_at")
	}
	if len(updated.GetTags()) != 2 {
		t.Errorf("unexpected tags after update: %v", updated.GetTags())
	}

	if err := store.DeleteFunction(fn.ID); err != nil {
		t.Fatalf("DeleteFunction() unexpected error: %v", err)
	}

	// Tombstoned rows stay fetchable by id but leave the list view
	got, err := store.GetFunctionByID(fn.ID)
	if err != nil {
		t.Fatalf("GetFunctionByID() unexpected error: %v", err)
	}
	if got == nil || !got.IsDeleted {
		t.Fatal("deleted function should remain as a tombstone")
	}

	list, err := store.ListFunctions(FunctionFilter{})
	if err != nil {
		t.Fatalf("ListFunctions() unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list after delete, got %d", len(list))
	}

	// Updating a tombstone is a no-op
	afterDelete, err := store.UpdateFunction(fn.ID, FunctionInput{Name: "X"})
	if err != nil {
		t.Fatalf("UpdateFunction() on tombstone unexpected error: %v", err)
	}
	if afterDelete != nil {
		t.Error("updating a deleted function should return nil")
	}
}

func TestListFunctionsFilter(t *testing.T) {
	store := newTestStore(t, "filter.ddb")

	seed := []FunctionInput{
		{Name: "STRING_AGG", DBMS: []string{"PostgreSQL"}, Tags: []string{"aggregation", "strings"}},
		{Name: "GROUP_CONCAT", DBMS: []string{"MySQL", "SQLite"}, Tags: []string{"aggregation"}},
		{Name: "JSON_EXTRACT", DBMS: []string{"MySQL"}, Tags: []string{"json"}},
	}
	for _, in := range seed {
		if _, err := store.CreateFunction(in); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter FunctionFilter
		want   int
	}{
		{"no filter", FunctionFilter{}, 3},
		{"query matches name case-insensitively", FunctionFilter{Query: "string_agg"}, 1},
		{"query matches tag substring", FunctionFilter{Query: "aggreg"}, 2},
		{"query matches dbms substring", FunctionFilter{Query: "sqlite"}, 1},
		{"dbms exact membership", FunctionFilter{DBMS: "MySQL"}, 2},
		{"tag exact membership", FunctionFilter{Tag: "json"}, 1},
		{"dbms and tag combined", FunctionFilter{DBMS: "MySQL", Tag: "aggregation"}, 1},
		{"no match", FunctionFilter{Query: "window"}, 0},
		{"dbms filter is exact not substring", FunctionFilter{DBMS: "My"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListFunctions(tt.filter)
			if err != nil {
				t.Fatalf("ListFunctions() unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d results, got %d", tt.want, len(got))
			}
		})
	}
}

func TestRemoteIDLinkLifecycle(t *testing.T) {
	store := newTestStore(t, "links.ddb")

	fn, err := store.CreateFunction(FunctionInput{Name: "NVL"})
	if err != nil {
		t.Fatalf("CreateFunction() unexpected error: %v", err)
	}

	if err := store.SetFunctionRemoteID(fn.ID, "remote-123"); err != nil {
		t.Fatalf("SetFunctionRemoteID() unexpected error: %v", err)
	}
	got, _ := store.GetFunctionByID(fn.ID)
	if !got.RemoteID.Valid || got.RemoteID.String != "remote-123" {
		t.Fatalf("expected remote link to persist, got %+v", got.RemoteID)
	}

	if err := store.ClearFunctionRemoteID(fn.ID); err != nil {
		t.Fatalf("ClearFunctionRemoteID() unexpected error: %v", err)
	}
	got, _ = store.GetFunctionByID(fn.ID)
	if got.RemoteID.Valid {
		t.Error("expected remote link to be cleared")
	}
}
