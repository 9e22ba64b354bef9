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

// APIResponse provides a consistent JSON response structure for all API
// endpoints. Success responses include data, error responses include an
// error message.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeSuccess sends a successful JSON response with data.
func writeSuccess(ctx rweb.Context, status int, data interface{}) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: true, Data: data})
}

// writeError sends an error JSON response.
func writeError(ctx rweb.Context, status int, message string) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: false, Error: message})
}

// notifySync nudges the background runner after a local write so changes
// reach the hub promptly instead of waiting for the next timed pass.
func notifySync() {
	if runner := models.GetSyncRunner(); runner != nil {
		runner.TriggerSync()
	}
}

// CreateFunction handles POST /api/v1/functions
func CreateFunction(ctx rweb.Context) error {
	var input models.FunctionInput

	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to decode request body"), "invalid JSON")
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	if input.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}

	fn, err := models.Local().CreateFunction(input)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to create function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to create function")
	}

	logger.Info("Function created", "id", strconv.FormatInt(fn.ID, 10), "name", fn.Name)
	notifySync()
	return writeSuccess(ctx, http.StatusCreated, fn.ToOutput())
}

// GetFunction handles GET /api/v1/functions/:id
func GetFunction(ctx rweb.Context) error {
	id, err := strconv.ParseInt(ctx.Request().Param("id"), 10, 64)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid function id")
	}

	fn, err := models.Local().GetFunctionByID(id)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to get function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	if fn == nil || fn.IsDeleted {
		return writeError(ctx, http.StatusNotFound, "function not found")
	}

	return writeSuccess(ctx, http.StatusOK, fn.ToOutput())
}

// ListFunctions handles GET /api/v1/functions
//
// Query parameters:
//   - q: free-text search across name, tags, and dbms (case-insensitive)
//   - dbms: exact DBMS membership filter
//   - tag: exact tag membership filter
func ListFunctions(ctx rweb.Context) error {
	filter := models.FunctionFilter{
		Query: ctx.Request().QueryParam("q"),
		DBMS:  ctx.Request().QueryParam("dbms"),
		Tag:   ctx.Request().QueryParam("tag"),
	}

	functions, err := models.Local().ListFunctions(filter)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to list functions"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}

	outputs := make([]models.FunctionOutput, 0, len(functions))
	for i := range functions {
		outputs = append(outputs, functions[i].ToOutput())
	}

	return writeSuccess(ctx, http.StatusOK, outputs)
}

// UpdateFunction handles PUT /api/v1/functions/:id
func UpdateFunction(ctx rweb.Context) error {
	id, err := strconv.ParseInt(ctx.Request().Param("id"), 10, 64)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid function id")
	}

	var input models.FunctionInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if input.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}

	fn, err := models.Local().UpdateFunction(id, input)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to update function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to update function")
	}
	if fn == nil {
		return writeError(ctx, http.StatusNotFound, "function not found")
	}

	notifySync()
	return writeSuccess(ctx, http.StatusOK, fn.ToOutput())
}

// DeleteFunction handles DELETE /api/v1/functions/:id
// The record is tombstoned, not removed, so the deletion syncs out.
func DeleteFunction(ctx rweb.Context) error {
	id, err := strconv.ParseInt(ctx.Request().Param("id"), 10, 64)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid function id")
	}

	fn, err := models.Local().GetFunctionByID(id)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to get function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	if fn == nil || fn.IsDeleted {
		return writeError(ctx, http.StatusNotFound, "function not found")
	}

	if err := models.Local().DeleteFunction(id); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to delete function")
	}

	notifySync()
	return writeSuccess(ctx, http.StatusOK, map[string]int64{"id": id})
}
