package models

import (
	"testing"
	"time"
)

// The pull-apply paths rewrite name and remote_id in place. Both columns must
// stay updatable on populated tables, so this walks a record through link,
// rename, and tombstone updates against a real database file.
func TestApplyRemoteOverwritesStoredRows(t *testing.T) {
	store := newTestStore(t, "apply.ddb")

	fn, err := store.CreateFunction(FunctionInput{
		Name: "ROWNUM", DBMS: []string{"Oracle"},
	})
	if err != nil {
		t.Fatalf("CreateFunction() unexpected error: %v", err)
	}
	if err = store.SetFunctionRemoteID(fn.ID, "fn-remote-1"); err != nil {
		t.Fatalf("SetFunctionRemoteID() unexpected error: %v", err)
	}

	err = store.ApplyRemoteFunction(fn.ID, RemoteFunction{
		ID:        "fn-remote-1",
		Name:      "ROW_NUMBER",
		DBMS:      []string{"Oracle", "PostgreSQL"},
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ApplyRemoteFunction() unexpected error: %v", err)
	}
	got, _ := store.GetFunctionByID(fn.ID)
	if got.Name != "ROW_NUMBER" || len(got.GetDBMS()) != 2 {
		t.Errorf("remote apply did not land: %+v", got)
	}

	opt, err := store.CreateOption(OptionTag, "analytic")
	if err != nil {
		t.Fatalf("CreateOption() unexpected error: %v", err)
	}
	if err = store.SetOptionRemoteID(OptionTag, opt.ID, "opt-remote-1"); err != nil {
		t.Fatalf("SetOptionRemoteID() unexpected error: %v", err)
	}

	err = store.ApplyRemoteOption(OptionTag, opt.ID, RemoteOption{
		ID:        "opt-remote-1",
		Name:      "analytics",
		IsDeleted: true,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ApplyRemoteOption() unexpected error: %v", err)
	}
	gotOpt, _ := store.GetOptionByID(OptionTag, opt.ID)
	if gotOpt.Name != "analytics" || !gotOpt.IsDeleted {
		t.Errorf("remote apply did not land: %+v", gotOpt)
	}
}
