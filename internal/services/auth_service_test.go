package services_test

import (
	"testing"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/repositories"
	"bugboard/internal/services"

	"github.com/stretchr/testify/assert"
)

func newAuthService(t *testing.T) (*services.AuthService, *repositories.MockUserRepository, *captureMailer, *services.CredentialStore) {
	t.Helper()
	userRepo := repositories.NewMockUserRepository()
	creds := services.NewCredentialStore(10)
	tokens := services.NewTokenService(userRepo, "test_jwt_secret", 30*time.Minute)
	mail := &captureMailer{}
	return services.NewAuthService(userRepo, tokens, creds, mail), userRepo, mail, creds
}

func TestAuthService_LoginSuccess(t *testing.T) {
	service, repo, _, creds := newAuthService(t)

	admin := adminUser()
	hashed, err := creds.HashPassword("correct-horse")
	assert.NoError(t, err)
	admin.Password = hashed
	assert.NoError(t, repo.Create(admin))

	token, user, err := service.Login(admin.Email, "correct-horse")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, admin.ID, user.ID)
}

func TestAuthService_LoginFailures(t *testing.T) {
	service, repo, _, creds := newAuthService(t)

	admin := adminUser()
	hashed, err := creds.HashPassword("correct-horse")
	assert.NoError(t, err)
	admin.Password = hashed
	assert.NoError(t, repo.Create(admin))

	// Malformed email.
	_, _, err = service.Login("not-an-email", "whatever")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// Unknown account and wrong password yield the same kind and message.
	_, _, errUnknown := service.Login("ghost@example.com", "whatever")
	assert.True(t, apperrors.IsKind(errUnknown, apperrors.KindUnauthorized))
	_, _, errWrongPw := service.Login(admin.Email, "wrong-password")
	assert.True(t, apperrors.IsKind(errWrongPw, apperrors.KindUnauthorized))
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestAuthService_LoginDeactivatedAccount(t *testing.T) {
	service, repo, _, creds := newAuthService(t)

	user := regularUser(2)
	hashed, err := creds.HashPassword("correct-horse")
	assert.NoError(t, err)
	user.Password = hashed
	user.Active = false
	assert.NoError(t, repo.Create(user))

	_, _, err = service.Login(user.Email, "correct-horse")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	assert.Contains(t, err.Error(), "deactivated")
}

func TestAuthService_ResetPassword(t *testing.T) {
	service, repo, mail, creds := newAuthService(t)

	user := regularUser(2)
	hashed, err := creds.HashPassword("old-password")
	assert.NoError(t, err)
	user.Password = hashed
	assert.NoError(t, repo.Create(user))

	assert.NoError(t, service.ResetPassword(user.Email))

	// The old password no longer works.
	stored, err := repo.GetByID(user.ID)
	assert.NoError(t, err)
	assert.False(t, creds.CheckPassword("old-password", stored.Password))

	// The mailed temporary password does.
	assert.Len(t, mail.sent, 1)
	assert.Equal(t, user.Email, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Body, "temporary password")
}

func TestAuthService_ResetPasswordUnknownEmail(t *testing.T) {
	service, _, mail, _ := newAuthService(t)

	err := service.ResetPassword("ghost@example.com")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Len(t, mail.sent, 0)
}

func TestAuthService_ResetPasswordMailFailureIsSwallowed(t *testing.T) {
	service, repo, mail, creds := newAuthService(t)
	mail.fail = true

	user := regularUser(2)
	hashed, err := creds.HashPassword("old-password")
	assert.NoError(t, err)
	user.Password = hashed
	assert.NoError(t, repo.Create(user))

	// The reset still goes through; the failure is only logged.
	assert.NoError(t, service.ResetPassword(user.Email))
	stored, err := repo.GetByID(user.ID)
	assert.NoError(t, err)
	assert.False(t, creds.CheckPassword("old-password", stored.Password))
}
