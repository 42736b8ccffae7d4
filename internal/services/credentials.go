package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"bugboard/internal/apperrors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is enforced before hashing on creation and change.
	MinPasswordLength = 6
	// DefaultBcryptCost matches the original deployment.
	DefaultBcryptCost = 12
	// minBcryptCost is the lowest work factor the store accepts.
	minBcryptCost = 10

	tempPasswordLength  = 12
	tempPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"
)

// CredentialStore owns password hashing, verification and temporary-password
// generation. Digests are one-way bcrypt hashes; plaintext never touches
// storage.
type CredentialStore struct {
	cost int
}

// NewCredentialStore creates a credential store with the given bcrypt cost.
// Costs below the accepted minimum fall back to the default.
func NewCredentialStore(cost int) *CredentialStore {
	if cost < minBcryptCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &CredentialStore{cost: cost}
}

// HashPassword returns the bcrypt digest of a plaintext password.
func (s *CredentialStore) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword verifies a plaintext password against a stored digest.
func (s *CredentialStore) CheckPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// ValidatePassword enforces the password policy before hashing.
func (s *CredentialStore) ValidatePassword(plain string) error {
	if len(plain) < MinPasswordLength {
		return apperrors.Validation("password too short (minimum %d characters)", MinPasswordLength)
	}
	return nil
}

// GenerateTemporaryPassword produces a random printable password for reset
// flows. The caller must hash it before storing and deliver the plaintext
// exactly once.
func (s *CredentialStore) GenerateTemporaryPassword() (string, error) {
	password := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordCharset)))
	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		password[i] = tempPasswordCharset[n.Int64()]
	}
	return string(password), nil
}
