package services

import (
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"

	"github.com/dgrijalva/jwt-go"
)

// DefaultTokenTTL is the session length when no override is configured.
const DefaultTokenTTL = 30 * time.Minute

// TokenService issues and verifies signed, time-limited session tokens.
// There is no server-side session table; expiry is the only invalidation
// mechanism. The secret is injected once at construction, never lazily
// initialized.
type TokenService struct {
	userRepo repositories.UserRepository
	secret   []byte
	ttl      time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(userRepo repositories.UserRepository, secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		userRepo: userRepo,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// Issue signs an HS256 token binding the user's id, email and role, expiring
// ttl from now.
func (s *TokenService) Issue(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, then re-fetches the user record so
// role and active-status changes take effect on the next request even while
// the token itself is still valid. The embedded role claim is never trusted
// for authorization decisions.
func (s *TokenService) Verify(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthorized("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperrors.Unauthorized("token expired")
		}
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return nil, apperrors.Unauthorized("invalid token")
	}

	user, err := s.userRepo.GetByID(uint(sub))
	if err != nil {
		return nil, apperrors.Internal("failed to resolve token subject", err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	return user, nil
}
