package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/pkg/mailer"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// UserService owns the user directory: creation, role assignment and the
// active flag. Accounts are never hard-deleted; deactivation is the delete.
type UserService struct {
	userRepo repositories.UserRepository
	creds    *CredentialStore
	mail     mailer.Mailer
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, creds *CredentialStore, mail mailer.Mailer) *UserService {
	return &UserService{
		userRepo: userRepo,
		creds:    creds,
		mail:     mail,
	}
}

// Create registers a new account. Admin only. Email is the natural key:
// format-validated and globally unique. The welcome mail is best-effort; a
// mailer failure never aborts the creation.
func (s *UserService) Create(actor *models.User, firstName, lastName, email, password, roleStr string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can create accounts")
	}
	if strings.TrimSpace(firstName) == "" {
		return nil, apperrors.Validation("first name is required")
	}
	if strings.TrimSpace(lastName) == "" {
		return nil, apperrors.Validation("last name is required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.creds.ValidatePassword(password); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(roleStr)
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, apperrors.Internal("failed to check email uniqueness", err)
	}
	if exists {
		return nil, apperrors.Conflict("email already registered")
	}

	hashed, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	now := time.Now()
	user := &models.User{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Password:    hashed,
		Role:        role,
		Active:      true,
		CreatedByID: &actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, apperrors.Internal("failed to create user", err)
	}

	body := fmt.Sprintf("Hello %s,\n\nan account has been created for you on BugBoard.\nYou can sign in with this email address.\n\nBugBoard Team", firstName)
	if err := s.mail.Send(email, "Welcome to BugBoard", body); err != nil {
		log.Printf("welcome mail to %s failed: %v", email, err)
	}
	return user, nil
}

// Get returns a single user.
func (s *UserService) Get(id uint) (*models.User, error) {
	return s.getUser(id)
}

// List returns every account. Admin only.
func (s *UserService) List(actor *models.User) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can list accounts")
	}
	users, err := s.userRepo.GetAll()
	if err != nil {
		return nil, apperrors.Internal("failed to list users", err)
	}
	return users, nil
}

// UpdateRole changes the target's role. Admin only, never on the actor's own
// account, and never on an existing admin: the admin role is one-way.
func (s *UserService) UpdateRole(actor *models.User, id uint, roleStr string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can change roles")
	}
	if actor.ID == id {
		return nil, apperrors.Forbidden("cannot change the role of your own account")
	}
	target, err := s.getUser(id)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() {
		return nil, apperrors.Forbidden("the role of an administrator cannot be changed")
	}
	if !CanChangeUserRole(actor, target) {
		return nil, apperrors.Forbidden("insufficient permissions to change this account's role")
	}
	if !target.Active {
		return nil, apperrors.Validation("cannot change the role of a deactivated account; reactivate it first")
	}
	role, err := models.ParseRole(roleStr)
	if err != nil {
		return nil, err
	}

	target.Role = role
	target.UpdatedAt = time.Now()
	if err := s.userRepo.Update(target); err != nil {
		return nil, apperrors.Internal("failed to update role", err)
	}
	return target, nil
}

// SetActive toggles the target's active flag. Admin only; never on the
// actor's own account, even for admins.
func (s *UserService) SetActive(actor *models.User, id uint, active bool) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an administrator can change account status")
	}
	target, err := s.getUser(id)
	if err != nil {
		return nil, err
	}
	if !CanChangeUserStatus(actor, target) {
		return nil, apperrors.Forbidden("cannot change the status of your own account")
	}

	target.Active = active
	target.UpdatedAt = time.Now()
	if err := s.userRepo.Update(target); err != nil {
		return nil, apperrors.Internal("failed to update account status", err)
	}
	return target, nil
}

// Deactivate is the soft delete of the directory.
func (s *UserService) Deactivate(actor *models.User, id uint) (*models.User, error) {
	return s.SetActive(actor, id, false)
}

// ChangePassword replaces the actor's own password after policy validation.
func (s *UserService) ChangePassword(actor *models.User, newPassword string) error {
	if err := s.creds.ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}
	actor.Password = hashed
	actor.UpdatedAt = time.Now()
	if err := s.userRepo.Update(actor); err != nil {
		return apperrors.Internal("failed to update password", err)
	}
	return nil
}

func (s *UserService) getUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, apperrors.Internal("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user with id %d not found", id)
	}
	return user, nil
}

// ValidateEmail checks the address format.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperrors.Validation("invalid email address")
	}
	return nil
}
