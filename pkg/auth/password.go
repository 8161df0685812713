package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost    = 12
	MinPasswordLen = 8
	// bcrypt ignores input past 72 bytes, so longer passwords are refused.
	MaxPasswordLen = 72
)

// ErrHashing wraps any failure of the underlying hash function.
var ErrHashing = errors.New("failed to hash password")

// PasswordValidationError lists every rule a password broke.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "invalid password: " + strings.Join(e.Errors, ", ")
}

var commonPasswords = map[string]bool{
	"password":     true,
	"password1!":   true,
	"password123!": true,
	"passw0rd!":    true,
	"p@ssw0rd":     true,
	"qwerty123!":   true,
	"welcome1!":    true,
	"letmein1!":    true,
	"admin123!":    true,
	"changeme1!":   true,
}

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password cannot be empty", ErrHashing)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a mismatch.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePassword enforces the strong password rule: length bounds and at
// least one lowercase, uppercase, digit and symbol.
func ValidatePassword(password string) error {
	var problems []string

	if len(password) < MinPasswordLen {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		problems = append(problems, fmt.Sprintf("must be at most %d bytes", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if !hasLower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !hasUpper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !hasDigit {
		problems = append(problems, "must contain a number")
	}
	if !hasSymbol {
		problems = append(problems, "must contain a symbol")
	}

	if commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "is too common")
	}

	if len(problems) > 0 {
		return &PasswordValidationError{Errors: problems}
	}
	return nil
}
