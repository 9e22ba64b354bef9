package api_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"sqlcodex/models"
	"sqlcodex/web"
)

// spokeDevice bundles a spoke store with a syncer talking to a live hub.
type spokeDevice struct {
	store  *models.Store
	syncer *models.Syncer
}

func newSpokeDevice(t *testing.T, hubURL, username, password string) *spokeDevice {
	t.Helper()

	store, err := models.OpenStore(filepath.Join(t.TempDir(), "spoke.ddb"))
	if err != nil {
		t.Fatalf("failed to open spoke store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hub, err := models.NewHubClient(store, hubURL, username, password)
	if err != nil {
		t.Fatalf("failed to create hub client: %v", err)
	}

	return &spokeDevice{
		store:  store,
		syncer: models.NewSyncer(store, hub, hub),
	}
}

func (d *spokeDevice) sync(t *testing.T) {
	t.Helper()
	ran, err := d.syncer.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync() unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("RunSync() reported signed out")
	}
}

// TestHubSyncEndToEnd runs two spoke devices against a live hub server over
// HTTP: register, push, pull, edit, and delete propagation.
func TestHubSyncEndToEnd(t *testing.T) {
	server, cleanup := setupTestServer(t, "./test_hub_sync.ddb", web.RoleHub)
	defer cleanup()

	// Register the shared account both devices use
	resp, result := server.postJSON(t, "/api/v1/auth/register", models.UserLoginInput{
		Username: "alice",
		Password: "correct-horse-battery",
	})
	if resp.StatusCode != http.StatusCreated || !result.Success {
		t.Fatalf("registration failed: status %d, %+v", resp.StatusCode, result)
	}

	deviceA := newSpokeDevice(t, server.baseURL, "alice", "correct-horse-battery")
	deviceB := newSpokeDevice(t, server.baseURL, "alice", "correct-horse-battery")

	// Device A authors content and pushes it through the hub
	if _, err := deviceA.store.CreateOption(models.OptionDBMS, "PostgreSQL"); err != nil {
		t.Fatal(err)
	}
	if _, err := deviceA.store.CreateOption(models.OptionTag, "window"); err != nil {
		t.Fatal(err)
	}
	created, err := deviceA.store.CreateFunction(models.FunctionInput{
		Name:        "LAG",
		Description: "Previous row value",
		Usage:       "LAG(col) OVER (ORDER BY ts)",
		DBMS:        []string{"PostgreSQL"},
		Tags:        []string{"window"},
	})
	if err != nil {
		t.Fatal(err)
	}

	deviceA.sync(t)
	deviceB.sync(t)

	bFunctions, err := deviceB.store.ListFunctions(models.FunctionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(bFunctions) != 1 || bFunctions[0].Name != "LAG" {
		t.Fatalf("device B should have pulled the function, got %+v", bFunctions)
	}
	if bFunctions[0].Usage != created.Usage {
		t.Errorf("usage did not survive the round trip: %q", bFunctions[0].Usage)
	}
	bOptions, _ := deviceB.store.ListOptions(models.OptionTag)
	if len(bOptions) != 1 || bOptions[0].Name != "window" {
		t.Fatalf("device B should have pulled the tag option, got %+v", bOptions)
	}

	// Edit on B flows back to A
	time.Sleep(10 * time.Millisecond)
	if _, err = deviceB.store.UpdateFunction(bFunctions[0].ID, models.FunctionInput{
		Name:        "LAG",
		Description: "Value from a preceding row",
		Usage:       created.Usage,
		DBMS:        []string{"PostgreSQL"},
		Tags:        []string{"window"},
	}); err != nil {
		t.Fatal(err)
	}
	deviceB.sync(t)
	deviceA.sync(t)

	aCopy, _ := deviceA.store.GetFunctionByID(created.ID)
	if aCopy.Description != "Value from a preceding row" {
		t.Errorf("device A should carry B's edit, got %q", aCopy.Description)
	}

	// Delete on A tombstones on B
	time.Sleep(10 * time.Millisecond)
	if err = deviceA.store.DeleteFunction(created.ID); err != nil {
		t.Fatal(err)
	}
	deviceA.sync(t)
	deviceB.sync(t)

	bAll, _ := deviceB.store.AllFunctions()
	if len(bAll) != 1 || !bAll[0].IsDeleted {
		t.Errorf("device B should carry the tombstone, got %+v", bAll)
	}
}

// TestHubEndpointsRequireAuth verifies the hub row endpoints reject requests
// without a token.
func TestHubEndpointsRequireAuth(t *testing.T) {
	server, cleanup := setupTestServer(t, "./test_hub_auth.ddb", web.RoleHub)
	defer cleanup()

	paths := []string{
		"/api/v1/hub/functions",
		"/api/v1/hub/dbms-options",
		"/api/v1/hub/tag-options",
	}
	for _, path := range paths {
		resp, err := server.client.Get(server.baseURL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s expected 401, got %d", path, resp.StatusCode)
		}
	}
}

// TestLoginRejectsBadCredentials covers the auth endpoint edge cases.
func TestLoginRejectsBadCredentials(t *testing.T) {
	server, cleanup := setupTestServer(t, "./test_hub_login.ddb", web.RoleHub)
	defer cleanup()

	server.postJSON(t, "/api/v1/auth/register", models.UserLoginInput{
		Username: "bob",
		Password: "a-decent-password",
	})

	resp, _ := server.postJSON(t, "/api/v1/auth/login", models.UserLoginInput{
		Username: "bob",
		Password: "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password expected 401, got %d", resp.StatusCode)
	}

	resp, result := server.postJSON(t, "/api/v1/auth/login", models.UserLoginInput{
		Username: "bob",
		Password: "a-decent-password",
	})
	if resp.StatusCode != http.StatusOK || !result.Success {
		t.Errorf("valid login expected 200 success, got %d", resp.StatusCode)
	}
}
