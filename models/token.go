package models

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohanthewiz/serr"
)

const (
	// tokenTTL is how long a hub token stays valid. Spokes cache the token in
	// sync_state and re-login transparently once it expires, so a week keeps
	// login round trips rare without leaving stale tokens live for long.
	tokenTTL = 7 * 24 * time.Hour

	// TokenIssuer and TokenAudience pin tokens to this hub's sync API;
	// tokens minted elsewhere fail validation even with a shared secret.
	TokenIssuer   = "sqlcodex-hub"
	TokenAudience = "sync"

	// JWTSecretEnvVar is the environment variable containing the signing key
	JWTSecretEnvVar = "SQLCODEX_JWT_SECRET"

	// MinSecretLength is the minimum acceptable length for the JWT secret
	MinSecretLength = 32
)

// jwtSecret is set during InitJWT and used for all token operations.
var jwtSecret []byte

// TokenClaims carries the account identity a hub request acts as.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserGUID string `json:"user_guid"`
	Username string `json:"username"`
}

// InitJWT loads the JWT signing key from the environment. Must be called at
// startup before any token operations. Falls back to a development key when
// the variable is unset.
func InitJWT() error {
	secret := os.Getenv(JWTSecretEnvVar)

	if secret == "" {
		secret = "development-only-secret-do-not-use-in-production"
	}

	if len(secret) < MinSecretLength {
		return serr.New("JWT secret must be at least 32 characters")
	}

	jwtSecret = []byte(secret)
	return nil
}

// GenerateToken mints a signed hub token for an authenticated account.
func GenerateToken(user *User) (string, error) {
	if len(jwtSecret) == 0 {
		return "", serr.New("JWT not initialized - call InitJWT first")
	}

	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			Subject:   user.GUID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		UserGUID: user.GUID,
		Username: user.Username,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		return "", serr.Wrap(err, "failed to sign token")
	}

	return tokenString, nil
}

// ValidateToken parses a token string and returns its claims when the token
// is genuine, unexpired, and was minted by this hub for the sync API.
func ValidateToken(tokenString string) (*TokenClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, serr.New("JWT not initialized - call InitJWT first")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{},
		func(token *jwt.Token) (interface{}, error) { return jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, serr.New("invalid token claims")
	}

	return claims, nil
}
