package models

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid long password", "mysecurepassword", false},
		{"valid exactly 8 chars", "12345678", false},
		{"too short 7 chars", "1234567", true},
		{"empty", "", true},
		{"one char", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	password := "my_secure_password_123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if hash == "" || hash == password {
		t.Fatal("HashPassword() returned an unusable hash")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword() returned false for correct password")
	}
	if CheckPassword("wrong_password", hash) {
		t.Error("CheckPassword() returned true for wrong password")
	}
}

func TestCreateAndAuthenticateUser(t *testing.T) {
	store := newTestStore(t, "users.ddb")

	user, err := store.CreateUser("alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("CreateUser() unexpected error: %v", err)
	}
	if user.GUID == "" {
		t.Error("expected a generated guid")
	}

	if _, err = store.CreateUser("alice", "another-password"); err == nil {
		t.Error("duplicate username should be rejected")
	}

	authed, err := store.AuthenticateUser("alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("AuthenticateUser() unexpected error: %v", err)
	}
	if authed == nil || authed.GUID != user.GUID {
		t.Error("expected successful authentication")
	}

	badPass, err := store.AuthenticateUser("alice", "wrong")
	if err != nil {
		t.Fatalf("AuthenticateUser() unexpected error: %v", err)
	}
	if badPass != nil {
		t.Error("wrong password should not authenticate")
	}

	noUser, err := store.AuthenticateUser("bob", "whatever1")
	if err != nil {
		t.Fatalf("AuthenticateUser() unexpected error: %v", err)
	}
	if noUser != nil {
		t.Error("unknown username should not authenticate")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	os.Setenv(JWTSecretEnvVar, "test-secret-that-is-at-least-32-chars!!")
	defer os.Unsetenv(JWTSecretEnvVar)

	if err := InitJWT(); err != nil {
		t.Fatalf("InitJWT() unexpected error: %v", err)
	}

	user := &User{GUID: "guid-1", Username: "alice"}
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if claims.UserGUID != "guid-1" || claims.Username != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err = ValidateToken(token + "tampered"); err == nil {
		t.Error("tampered token should not validate")
	}

	// A token minted for another audience fails even with the right secret
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{"admin"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserGUID: "guid-1",
	})
	foreignString, err := foreign.SignedString(jwtSecret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	if _, err = ValidateToken(foreignString); err == nil {
		t.Error("token for a different audience should not validate")
	}
}
