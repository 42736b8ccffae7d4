package services

import (
	"fmt"
	"log"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/pkg/mailer"
)

// AuthService handles login and the password-reset flow. Session state lives
// entirely in the signed token.
type AuthService struct {
	userRepo repositories.UserRepository
	tokens   *TokenService
	creds    *CredentialStore
	mail     mailer.Mailer
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService, creds *CredentialStore, mail mailer.Mailer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		creds:    creds,
		mail:     mail,
	}
}

// Login authenticates credentials and returns a session token plus the user.
// Wrong email and wrong password produce the same message so the endpoint
// does not reveal which accounts exist.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	if err := ValidateEmail(email); err != nil {
		return "", nil, err
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}
	if !user.Active {
		return "", nil, apperrors.Unauthorized("account deactivated")
	}
	if !s.creds.CheckPassword(password, user.Password) {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ResetPassword replaces the account password with a random temporary one
// and mails the plaintext to the account address. The plaintext exists only
// for the duration of this call. A mailer failure is logged and does not
// roll the reset back, matching the best-effort mail policy.
func (s *AuthService) ResetPassword(email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return apperrors.NotFound("no account registered for this email")
	}

	temp, err := s.creds.GenerateTemporaryPassword()
	if err != nil {
		return apperrors.Internal("failed to generate temporary password", err)
	}
	hashed, err := s.creds.HashPassword(temp)
	if err != nil {
		return apperrors.Internal("failed to hash temporary password", err)
	}

	user.Password = hashed
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return apperrors.Internal("failed to store temporary password", err)
	}

	body := fmt.Sprintf("Hello,\n\nyour temporary password is: %s\n\nPlease change it after your first sign-in.\n\nBugBoard Team", temp)
	if err := s.mail.Send(email, "Password recovery - BugBoard", body); err != nil {
		log.Printf("password reset mail to %s failed: %v", email, err)
	}
	return nil
}
