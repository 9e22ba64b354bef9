package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sqlcodex/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// OptionInput is the request shape for creating an option.
type OptionInput struct {
	Name string `json:"name"`
}

func listOptions(ctx rweb.Context, kind models.OptionKind) error {
	options, err := models.Local().ListOptions(kind)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to list options"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	return writeSuccess(ctx, http.StatusOK, options)
}

func createOption(ctx rweb.Context, kind models.OptionKind) error {
	var input OptionInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return writeError(ctx, http.StatusBadRequest, "name is required")
	}

	opt, err := models.Local().CreateOption(kind, input.Name)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to create option"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to create option")
	}

	notifySync()
	return writeSuccess(ctx, http.StatusCreated, opt)
}

func deleteOption(ctx rweb.Context, kind models.OptionKind) error {
	id, err := strconv.ParseInt(ctx.Request().Param("id"), 10, 64)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid option id")
	}

	opt, err := models.Local().GetOptionByID(kind, id)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to get option"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "database error")
	}
	if opt == nil || opt.IsDeleted {
		return writeError(ctx, http.StatusNotFound, "option not found")
	}

	if err := models.Local().DeleteOption(kind, id); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to delete option"), "database error")
		return writeError(ctx, http.StatusInternalServerError, "failed to delete option")
	}

	notifySync()
	return writeSuccess(ctx, http.StatusOK, map[string]int64{"id": id})
}

// ListDBMSOptions handles GET /api/v1/dbms-options
func ListDBMSOptions(ctx rweb.Context) error {
	return listOptions(ctx, models.OptionDBMS)
}

// CreateDBMSOption handles POST /api/v1/dbms-options
func CreateDBMSOption(ctx rweb.Context) error {
	return createOption(ctx, models.OptionDBMS)
}

// DeleteDBMSOption handles DELETE /api/v1/dbms-options/:id
func DeleteDBMSOption(ctx rweb.Context) error {
	return deleteOption(ctx, models.OptionDBMS)
}

// ListTagOptions handles GET /api/v1/tag-options
func ListTagOptions(ctx rweb.Context) error {
	return listOptions(ctx, models.OptionTag)
}

// CreateTagOption handles POST /api/v1/tag-options
func CreateTagOption(ctx rweb.Context) error {
	return createOption(ctx, models.OptionTag)
}

// DeleteTagOption handles DELETE /api/v1/tag-options/:id
func DeleteTagOption(ctx rweb.Context) error {
	return deleteOption(ctx, models.OptionTag)
}
