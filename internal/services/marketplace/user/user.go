// Package user provides marketplace identities and credential checks.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
	"golang.org/x/crypto/bcrypt"
)

// Role identifies what a user may administer.
type Role string

const (
	// RoleUser is the default marketplace member role.
	RoleUser Role = "user"
	// RoleAdmin may moderate users, skills, and announcements.
	RoleAdmin Role = "admin"
)

const (
	maxEmailLength   = 254
	maxNameRunes     = 64
	minPasswordBytes = 8
	maxPasswordBytes = 72
)

var (
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = apperrors.New(apperrors.CodeUserInvalidEmail, "email must be a valid address")
	// ErrInvalidName indicates an empty or oversized display name.
	ErrInvalidName = apperrors.New(apperrors.CodeUserInvalidName, "name must be 1-64 characters")
	// ErrWeakPassword indicates a password outside the accepted length range.
	ErrWeakPassword = apperrors.New(apperrors.CodeUserWeakPassword, "password must be 8-72 bytes")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")
	// ErrBanned indicates the account was banned by an admin.
	ErrBanned = apperrors.New(apperrors.CodeUserBanned, "account is banned")

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// hashCost is lowered by tests.
	hashCost = bcrypt.DefaultCost
)

// User is one marketplace identity.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Banned       bool
	BanReason    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterInput describes a sign-up request.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// NormalizeEmail trims and lower-cases an email, then validates its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizeName trims a display name and enforces its rune limit.
func NormalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		return "", ErrInvalidName
	}
	return name, nil
}

// ValidatePassword enforces the bcrypt-compatible password length range.
func ValidatePassword(password string) error {
	if len(password) < minPasswordBytes || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns a bcrypt hash of a validated password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash string, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register builds a new user from sign-up input.
//
// The caller decides the role; the store layer grants admin to the very first
// account.
func Register(input RegisterInput, role Role, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return User{}, err
	}
	name, err := NormalizeName(input.Name)
	if err != nil {
		return User{}, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	if role != RoleAdmin {
		role = RoleUser
	}
	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}
	createdAt := now().UTC()
	return User{
		ID:           userID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// Authenticate checks a login attempt against a stored user.
func Authenticate(u User, password string) error {
	if !CheckPassword(u.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	if u.Banned {
		return ErrBanned
	}
	return nil
}
