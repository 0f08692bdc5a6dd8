package model

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/argon2"
)

// Roles recognized by the API authorization layer.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Argon2id parameters for password hashing.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// User represents an API account with a role-based permission level.
// Passwords are stored as argon2id hashes, never in the clear.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for User.
func (u User) TableName() string {
	return tablePrefix + "user"
}

// NewUser creates an active user with the given role and hashed password.
func NewUser(username, password, role string) (*User, error) {
	u := &User{
		ID:        0,
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user's fields against business rules.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&u.Role, validation.Required, validation.In(RoleAdmin, RoleUser)),
	)
}

// SetPassword hashes the given password with argon2id and a fresh random
// salt, storing the result as "salt$hash" in base64.
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return DomainError{Code: "PASSWORD_TOO_SHORT", Message: "Password must be at least 8 characters"}
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	u.PasswordHash = base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(hash)
	u.UpdatedAt = time.Now()

	return nil
}

// VerifyPassword reports whether the given password matches the stored hash.
// Comparison is constant-time.
func (u *User) VerifyPassword(password string) bool {
	parts := strings.SplitN(u.PasswordHash, "$", 2)
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(stored, computed) == 1
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
