package web

import (
	"net/http"
	"strings"

	"sqlcodex/models"

	"github.com/rohanthewiz/rweb"
)

// CorsMiddleware handles CORS headers for cross-origin requests
func CorsMiddleware(c rweb.Context) error {
	c.Response().SetHeader("Access-Control-Allow-Origin", "*")
	c.Response().SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Response().SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

	if c.Request().Method() == "OPTIONS" {
		c.SetStatus(http.StatusOK)
		return nil
	}

	return c.Next()
}

// JWTAuthMiddleware extracts the Bearer token from the Authorization header,
// validates it, and sets user_guid and authenticated in the context. Requests
// without a valid token continue unauthenticated; handlers that need an
// account decide whether to reject them.
func JWTAuthMiddleware(c rweb.Context) error {
	authHeader := c.Request().Header("Authorization")

	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.Set("user_guid", "")
		c.Set("authenticated", false)
		return c.Next()
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	claims, err := models.ValidateToken(tokenString)
	if err != nil {
		// Invalid token - continue as unauthenticated.
		// Don't log every invalid token attempt (could be attack)
		c.Set("user_guid", "")
		c.Set("authenticated", false)
		return c.Next()
	}

	c.Set("user_guid", claims.UserGUID)
	c.Set("username", claims.Username)
	c.Set("authenticated", true)

	return c.Next()
}
