package web

import (
	"net/http"

	"sqlcodex/web/api"

	"github.com/rohanthewiz/rweb"
)

// setupRoutes registers the route set for the instance's role.
func setupRoutes(s *rweb.Server, role Role) {
	// Health check, used by spokes before each sync pass
	s.Get("/api/v1/health", func(ctx rweb.Context) error {
		ctx.SetStatus(http.StatusOK)
		return ctx.WriteJSON(map[string]string{"status": "ok"})
	})

	if role == RoleSpoke || role == RoleBoth {
		// Function CRUD
		s.Post("/api/v1/functions", api.CreateFunction)
		s.Get("/api/v1/functions", api.ListFunctions)
		s.Get("/api/v1/functions/:id", api.GetFunction)
		s.Put("/api/v1/functions/:id", api.UpdateFunction)
		s.Delete("/api/v1/functions/:id", api.DeleteFunction)

		// Option collections
		s.Get("/api/v1/dbms-options", api.ListDBMSOptions)
		s.Post("/api/v1/dbms-options", api.CreateDBMSOption)
		s.Delete("/api/v1/dbms-options/:id", api.DeleteDBMSOption)
		s.Get("/api/v1/tag-options", api.ListTagOptions)
		s.Post("/api/v1/tag-options", api.CreateTagOption)
		s.Delete("/api/v1/tag-options/:id", api.DeleteTagOption)

		// Sync controls
		s.Post("/api/v1/sync/trigger", api.TriggerSync)
		s.Get("/api/v1/sync/status", api.SyncStatus)
		s.Post("/api/v1/sync/enabled", api.SetSyncEnabled)
		s.Get("/api/v1/sync/conflicts", api.ListSyncConflicts)

		// Backup and restore
		s.Get("/api/v1/export", api.ExportSnapshot)
		s.Post("/api/v1/import", api.ImportSnapshot)
	}

	if role == RoleHub || role == RoleBoth {
		// Accounts
		s.Post("/api/v1/auth/register", api.Register)
		s.Post("/api/v1/auth/login", api.Login)

		// Row storage for the three synced collections
		s.Get("/api/v1/hub/functions", api.HubListFunctions)
		s.Post("/api/v1/hub/functions", api.HubInsertFunction)
		s.Put("/api/v1/hub/functions/:id", api.HubUpdateFunction)
		s.Get("/api/v1/hub/dbms-options", api.HubListDBMSOptions)
		s.Post("/api/v1/hub/dbms-options", api.HubInsertDBMSOption)
		s.Put("/api/v1/hub/dbms-options/:id", api.HubUpdateDBMSOption)
		s.Get("/api/v1/hub/tag-options", api.HubListTagOptions)
		s.Post("/api/v1/hub/tag-options", api.HubInsertTagOption)
		s.Put("/api/v1/hub/tag-options/:id", api.HubUpdateTagOption)
	}
}
