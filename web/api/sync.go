package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sqlcodex/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// TriggerSync handles POST /api/v1/sync/trigger
// Requests an immediate pass; if one is already running, a single follow-up
// pass is queued.
func TriggerSync(ctx rweb.Context) error {
	runner := models.GetSyncRunner()
	if runner == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}
	if !runner.IsEnabled() {
		return writeError(ctx, http.StatusConflict, "sync is disabled")
	}

	runner.TriggerSync()
	return writeSuccess(ctx, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// SyncStatus handles GET /api/v1/sync/status
func SyncStatus(ctx rweb.Context) error {
	runner := models.GetSyncRunner()
	if runner == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}
	return writeSuccess(ctx, http.StatusOK, runner.GetStatus())
}

// SetSyncEnabled handles POST /api/v1/sync/enabled
func SetSyncEnabled(ctx rweb.Context) error {
	runner := models.GetSyncRunner()
	if runner == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}

	var input struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	runner.SetEnabled(input.Enabled)
	return writeSuccess(ctx, http.StatusOK, map[string]bool{"enabled": input.Enabled})
}

// ListSyncConflicts handles GET /api/v1/sync/conflicts
func ListSyncConflicts(ctx rweb.Context) error {
	limit := 0
	if limitStr := ctx.Request().QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return writeError(ctx, http.StatusBadRequest, "invalid limit parameter")
		}
		limit = parsed
	}

	conflicts, err := models.Local().ListSyncConflicts(limit)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to list sync conflicts"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	return writeSuccess(ctx, http.StatusOK, conflicts)
}

// ExportSnapshot handles GET /api/v1/export
// Streams the full knowledge base as a msgpack archive.
func ExportSnapshot(ctx rweb.Context) error {
	data, err := models.Local().ExportSnapshot()
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to export snapshot"), "export error")
		return writeError(ctx, http.StatusInternalServerError, "failed to export snapshot")
	}

	ctx.Response().SetHeader("Content-Type", "application/msgpack")
	ctx.Response().SetHeader("Content-Disposition", `attachment; filename="sqlcodex-export.msgpack"`)
	return ctx.Bytes(data)
}

// ImportSnapshot handles POST /api/v1/import
// Merges a msgpack archive into the local store.
func ImportSnapshot(ctx rweb.Context) error {
	body := ctx.Request().Body()
	if len(body) == 0 {
		return writeError(ctx, http.StatusBadRequest, "request body is empty")
	}

	imported, err := models.Local().ImportSnapshot(body)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to import snapshot"), "import error")
		return writeError(ctx, http.StatusBadRequest, "failed to import snapshot")
	}

	notifySync()
	return writeSuccess(ctx, http.StatusOK, map[string]int{"imported": imported})
}
