package models

import "testing"

func TestCreateOptionDeduplicates(t *testing.T) {
	store := newTestStore(t, "options.ddb")

	first, err := store.CreateOption(OptionDBMS, "PostgreSQL")
	if err != nil {
		t.Fatalf("CreateOption() unexpected error: %v", err)
	}

	// Creating the same name again returns the existing row
	second, err := store.CreateOption(OptionDBMS, "PostgreSQL")
	if err != nil {
		t.Fatalf("CreateOption() duplicate unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate create should return existing row, got id %d vs %d", second.ID, first.ID)
	}

	list, err := store.ListOptions(OptionDBMS)
	if err != nil {
		t.Fatalf("ListOptions() unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 option, got %d", len(list))
	}

	// The two collections are independent
	tagList, err := store.ListOptions(OptionTag)
	if err != nil {
		t.Fatalf("ListOptions(tag) unexpected error: %v", err)
	}
	if len(tagList) != 0 {
		t.Errorf("tag collection should be empty, got %d", len(tagList))
	}
}

func TestCreateOptionRevivesTombstone(t *testing.T) {
	store := newTestStore(t, "revive.ddb")

	opt, err := store.CreateOption(OptionTag, "window-functions")
	if err != nil {
		t.Fatalf("CreateOption() unexpected error: %v", err)
	}
	if err := store.SetOptionRemoteID(OptionTag, opt.ID, "remote-tag-1"); err != nil {
		t.Fatalf("SetOptionRemoteID() unexpected error: %v", err)
	}
	if err := store.DeleteOption(OptionTag, opt.ID); err != nil {
		t.Fatalf("DeleteOption() unexpected error: %v", err)
	}

	list, _ := store.ListOptions(OptionTag)
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(list))
	}

	// Re-creating the name revives the tombstone in place, keeping its
	// remote link instead of minting a second row
	revived, err := store.CreateOption(OptionTag, "window-functions")
	if err != nil {
		t.Fatalf("CreateOption() revive unexpected error: %v", err)
	}
	if revived.ID != opt.ID {
		t.Errorf("revival should reuse the tombstoned row, got id %d vs %d", revived.ID, opt.ID)
	}
	if revived.IsDeleted {
		t.Error("revived option should not be deleted")
	}
	if !revived.RemoteID.Valid || revived.RemoteID.String != "remote-tag-1" {
		t.Error("revival should preserve the remote link")
	}
	if !revived.UpdatedAt.After(opt.UpdatedAt) {
		t.Error("revival should bump updated_at so it syncs out")
	}

	all, err := store.AllOptions(OptionTag)
	if err != nil {
		t.Fatalf("AllOptions() unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single row after revival, got %d", len(all))
	}
}
