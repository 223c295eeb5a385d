package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/repository"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// PasswordVerifier checks submitted passwords against stored bcrypt hashes.
// It backs the anonymous-token reveal flow.
type PasswordVerifier struct {
	users repository.UserRepository
}

// NewPasswordVerifier constructs the verifier.
func NewPasswordVerifier(users repository.UserRepository) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// VerifyPassword reports whether plaintext matches the user's credential.
// An unknown user verifies as false rather than erroring, so callers treat
// it the same as a wrong password.
func (v *PasswordVerifier) VerifyPassword(ctx context.Context, userID, plaintext string) (bool, error) {
	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if err := ComparePassword(user.PasswordHash, plaintext); err != nil {
		return false, nil
	}
	return true, nil
}
