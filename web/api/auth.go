package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"sqlcodex/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// AuthResponse carries the account and its token after register/login.
type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a hub account and returns a JWT.
// POST /api/v1/auth/register
func Register(ctx rweb.Context) error {
	var input models.UserLoginInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	if input.Username == "" {
		return writeError(ctx, http.StatusBadRequest, "username is required")
	}
	if input.Password == "" {
		return writeError(ctx, http.StatusBadRequest, "password is required")
	}

	user, err := models.Local().CreateUser(input.Username, input.Password)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "already taken") {
			return writeError(ctx, http.StatusConflict, errMsg)
		}
		if strings.Contains(errMsg, "must be") || strings.Contains(errMsg, "required") {
			return writeError(ctx, http.StatusBadRequest, errMsg)
		}
		logger.LogErr(serr.Wrap(err, "failed to create user"), "username", input.Username)
		return writeError(ctx, http.StatusInternalServerError, "failed to create user")
	}

	token, err := models.GenerateToken(user)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to generate token"), "user_guid", user.GUID)
		return writeError(ctx, http.StatusInternalServerError, "failed to generate token")
	}

	return writeSuccess(ctx, http.StatusCreated, AuthResponse{User: *user, Token: token})
}

// Login authenticates an account and returns a JWT.
// POST /api/v1/auth/login
func Login(ctx rweb.Context) error {
	var input models.UserLoginInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	if input.Username == "" {
		return writeError(ctx, http.StatusBadRequest, "username is required")
	}
	if input.Password == "" {
		return writeError(ctx, http.StatusBadRequest, "password is required")
	}

	user, err := models.Local().AuthenticateUser(input.Username, input.Password)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "authentication error"), "username", input.Username)
		return writeError(ctx, http.StatusInternalServerError, "authentication error")
	}
	if user == nil {
		// Invalid credentials - don't reveal whether username exists
		return writeError(ctx, http.StatusUnauthorized, "invalid credentials")
	}

	token, err := models.GenerateToken(user)
	if err != nil {
		logger.LogErr(serr.Wrap(err, "failed to generate token"), "user_guid", user.GUID)
		return writeError(ctx, http.StatusInternalServerError, "failed to generate token")
	}

	return writeSuccess(ctx, http.StatusOK, AuthResponse{User: *user, Token: token})
}

// GetCurrentUserGUID returns the account guid set by JWTAuthMiddleware, or
// empty for unauthenticated requests.
func GetCurrentUserGUID(ctx rweb.Context) string {
	guid, _ := ctx.Get("user_guid").(string)
	return guid
}

// IsAuthenticated reports whether the request carries a valid token.
func IsAuthenticated(ctx rweb.Context) bool {
	authenticated, _ := ctx.Get("authenticated").(bool)
	return authenticated
}
