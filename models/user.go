package models

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"golang.org/x/crypto/bcrypt"
)

// User is a hub account. Each account owns an isolated copy of the three
// synced collections, keyed by GUID.
type User struct {
	GUID         string    `json:"guid"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserLoginInput carries credentials for registration and login.
type UserLoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// bcrypt cost of 12 keeps login latency reasonable while staying slow enough
// for offline attacks.
const bcryptCost = 12

// HashPassword creates a bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", serr.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against its hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return serr.New("password must be at least 8 characters")
	}
	return nil
}

// CreateUser registers a hub account. Usernames are trimmed and must be
// unique; the password is hashed before storage.
func (s *Store) CreateUser(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, serr.New("username is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, serr.New("username is already taken")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	guid := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO users (guid, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		guid, username, hash, time.Now().UTC(),
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to create user")
	}

	return s.GetUserByGUID(guid)
}

// AuthenticateUser checks credentials and returns the account on success,
// or nil with no error when the credentials are wrong.
func (s *Store) AuthenticateUser(username, password string) (*User, error) {
	user, err := s.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// GetUserByUsername returns an account by username, or nil when not found.
func (s *Store) GetUserByUsername(username string) (*User, error) {
	return s.getUser(`SELECT guid, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

// GetUserByGUID returns an account by guid, or nil when not found.
func (s *Store) GetUserByGUID(guid string) (*User, error) {
	return s.getUser(`SELECT guid, username, password_hash, created_at FROM users WHERE guid = ?`, guid)
}

func (s *Store) getUser(query, arg string) (*User, error) {
	u := &User{}
	err := s.db.QueryRow(query, arg).Scan(&u.GUID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get user")
	}
	return u, nil
}
