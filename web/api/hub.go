package api

import (
	"encoding/json"
	"net/http"

	"sqlcodex/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Hub row endpoints
//
// These serve the spokes' sync passes: full-snapshot list, insert returning
// the server-assigned id, and id-keyed update. Every handler requires a
// valid token and scopes its queries to the authenticated account.
// ============================================================================

// requireUser rejects unauthenticated requests and returns the account guid.
func requireUser(ctx rweb.Context) (string, error) {
	if !IsAuthenticated(ctx) {
		return "", writeError(ctx, http.StatusUnauthorized, "authentication required")
	}
	return GetCurrentUserGUID(ctx), nil
}

// HubListFunctions handles GET /api/v1/hub/functions
func HubListFunctions(ctx rweb.Context) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	functions, err := models.Local().HubListFunctions(userGUID)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to list hub functions"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	if functions == nil {
		functions = []models.RemoteFunction{}
	}
	return writeSuccess(ctx, http.StatusOK, functions)
}

// HubInsertFunction handles POST /api/v1/hub/functions
func HubInsertFunction(ctx rweb.Context) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	var rf models.RemoteFunction
	if err := json.Unmarshal(ctx.Request().Body(), &rf); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if rf.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}

	id, err := models.Local().HubInsertFunction(userGUID, rf)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to insert hub function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to store function")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]string{"id": id})
}

// HubUpdateFunction handles PUT /api/v1/hub/functions/:id
func HubUpdateFunction(ctx rweb.Context) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	var rf models.RemoteFunction
	if err := json.Unmarshal(ctx.Request().Body(), &rf); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	rf.ID = ctx.Request().Param("id")
	if rf.ID == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}

	found, err := models.Local().HubUpdateFunction(userGUID, rf)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to update hub function"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to update function")
	}
	if !found {
		return writeError(ctx, http.StatusNotFound, "function not found")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]string{"id": rf.ID})
}

func hubListOptions(ctx rweb.Context, kind models.OptionKind) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	options, err := models.Local().HubListOptions(userGUID, kind)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to list hub options"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	if options == nil {
		options = []models.RemoteOption{}
	}
	return writeSuccess(ctx, http.StatusOK, options)
}

func hubInsertOption(ctx rweb.Context, kind models.OptionKind) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	var ro models.RemoteOption
	if err := json.Unmarshal(ctx.Request().Body(), &ro); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if ro.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}

	id, err := models.Local().HubInsertOption(userGUID, kind, ro)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to insert hub option"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to store option")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]string{"id": id})
}

func hubUpdateOption(ctx rweb.Context, kind models.OptionKind) error {
	userGUID, errResp := requireUser(ctx)
	if userGUID == "" {
		return errResp
	}

	var ro models.RemoteOption
	if err := json.Unmarshal(ctx.Request().Body(), &ro); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	ro.ID = ctx.Request().Param("id")
	if ro.ID == "" {
		return writeError(ctx, http.StatusBadRequest, "id is required")
	}

	found, err := models.Local().HubUpdateOption(userGUID, kind, ro)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to update hub option"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to update option")
	}
	if !found {
		return writeError(ctx, http.StatusNotFound, "option not found")
	}

	return writeSuccess(ctx, http.StatusOK, map[string]string{"id": ro.ID})
}

// HubListDBMSOptions handles GET /api/v1/hub/dbms-options
func HubListDBMSOptions(ctx rweb.Context) error {
	return hubListOptions(ctx, models.OptionDBMS)
}

// HubInsertDBMSOption handles POST /api/v1/hub/dbms-options
func HubInsertDBMSOption(ctx rweb.Context) error {
	return hubInsertOption(ctx, models.OptionDBMS)
}

// HubUpdateDBMSOption handles PUT /api/v1/hub/dbms-options/:id
func HubUpdateDBMSOption(ctx rweb.Context) error {
	return hubUpdateOption(ctx, models.OptionDBMS)
}

// HubListTagOptions handles GET /api/v1/hub/tag-options
func HubListTagOptions(ctx rweb.Context) error {
	return hubListOptions(ctx, models.OptionTag)
}

// HubInsertTagOption handles POST /api/v1/hub/tag-options
func HubInsertTagOption(ctx rweb.Context) error {
	return hubInsertOption(ctx, models.OptionTag)
}

// HubUpdateTagOption handles PUT /api/v1/hub/tag-options/:id
func HubUpdateTagOption(ctx rweb.Context) error {
	return hubUpdateOption(ctx, models.OptionTag)
}
