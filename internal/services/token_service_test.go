package services_test

import (
	"testing"
	"time"

	"bugboard/internal/apperrors"
	"bugboard/internal/repositories"
	"bugboard/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test_jwt_secret"

func TestTokenService_IssueAndVerify(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	service := services.NewTokenService(userRepo, testSecret, 30*time.Minute)

	admin := adminUser()
	assert.NoError(t, userRepo.Create(admin))

	token, err := service.Issue(admin)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	user, err := service.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, admin.ID, user.ID)
	assert.Equal(t, admin.Email, user.Email)
}

func TestTokenService_VerifyExpiredToken(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	service := services.NewTokenService(userRepo, testSecret, 30*time.Minute)

	admin := adminUser()
	assert.NoError(t, userRepo.Create(admin))

	// Craft a token that expired an hour ago with the real secret.
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": float64(admin.ID),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(testSecret))
	assert.NoError(t, err)

	_, err = service.Verify(signed)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenService_VerifyTamperedToken(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	service := services.NewTokenService(userRepo, testSecret, 30*time.Minute)

	admin := adminUser()
	assert.NoError(t, userRepo.Create(admin))

	// Signed with the wrong secret.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": float64(admin.ID),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := forged.SignedString([]byte("some-other-secret"))
	assert.NoError(t, err)

	_, err = service.Verify(signed)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = service.Verify("definitely.not.a.token")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestTokenService_VerifyDeletedUser(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	service := services.NewTokenService(userRepo, testSecret, 30*time.Minute)

	// Issue for a user that was never persisted: the signature checks out but
	// the subject does not resolve.
	ghost := regularUser(42)
	token, err := service.Issue(ghost)
	assert.NoError(t, err)

	_, err = service.Verify(token)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	assert.Contains(t, err.Error(), "no longer exists")
}

func TestTokenService_RoleChangeTakesEffectImmediately(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	service := services.NewTokenService(userRepo, testSecret, 30*time.Minute)

	user := regularUser(2)
	assert.NoError(t, userRepo.Create(user))

	token, err := service.Issue(user)
	assert.NoError(t, err)

	// Promote after issuing: Verify must reflect the database, not the claim.
	user.Role = "Admin"
	assert.NoError(t, userRepo.Update(user))

	resolved, err := service.Verify(token)
	assert.NoError(t, err)
	assert.True(t, resolved.IsAdmin())
}
