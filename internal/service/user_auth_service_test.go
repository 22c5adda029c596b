package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 2}
	cfg.UserJWT = config.JWTConfig{SecretKey: "user-secret", ExpireHours: 2}
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{MinLength: 8, RequireNumber: true}
	return cfg
}

func TestUserAuthRegisterAndLogin(t *testing.T) {
	env := newCardTestEnv(t)
	svc := NewUserAuthService(newAuthTestConfig(), env.userRepo)

	user, token, expiresAt, err := svc.Register(RegisterInput{Email: " Alice@Example.com ", Username: "Alice_1", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "alice_1", user.Username)
	require.Equal(t, "alice_1", user.DisplayName)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ParseUserJWT(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	_, _, _, err = svc.Login("alice_1", "secret123")
	require.NoError(t, err)
	_, _, _, err = svc.Login("ALICE@example.com", "secret123")
	require.NoError(t, err)
	_, _, _, err = svc.Login("alice_1", "wrong-pass1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, _, err = svc.Login("nobody", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserAuthRegisterValidation(t *testing.T) {
	env := newCardTestEnv(t)
	svc := NewUserAuthService(newAuthTestConfig(), env.userRepo)
	_, _, _, err := svc.Register(RegisterInput{Email: "taken@example.com", Username: "taken", Password: "secret123"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		input  RegisterInput
		target error
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Username: "fresh", Password: "secret123"}, ErrInvalidEmail},
		{"bad username", RegisterInput{Email: "a@example.com", Username: "a!", Password: "secret123"}, ErrUsernameInvalid},
		{"short password", RegisterInput{Email: "a@example.com", Username: "fresh", Password: "s1"}, ErrWeakPassword},
		{"password without number", RegisterInput{Email: "a@example.com", Username: "fresh", Password: "secretsecret"}, ErrWeakPassword},
		{"email taken", RegisterInput{Email: "TAKEN@example.com", Username: "fresh", Password: "secret123"}, ErrEmailExists},
		{"username taken", RegisterInput{Email: "a@example.com", Username: "taken", Password: "secret123"}, ErrUsernameExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := svc.Register(tc.input)
			require.ErrorIs(t, err, tc.target)
		})
	}
}

func TestUserAuthDisabledAccount(t *testing.T) {
	env := newCardTestEnv(t)
	svc := NewUserAuthService(newAuthTestConfig(), env.userRepo)
	user, token, _, err := svc.Register(RegisterInput{Email: "off@example.com", Username: "off", Password: "secret123"})
	require.NoError(t, err)

	user.Status = constants.UserStatusDisabled
	require.NoError(t, env.userRepo.Update(user))

	_, _, _, err = svc.Login("off", "secret123")
	require.ErrorIs(t, err, ErrUserDisabled)

	claims, err := svc.ParseUserJWT(token)
	require.NoError(t, err)
	_, err = svc.ResolveUser(context.Background(), claims)
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestUserAuthRejectsAdminToken(t *testing.T) {
	env := newCardTestEnv(t)
	cfg := newAuthTestConfig()
	userSvc := NewUserAuthService(cfg, env.userRepo)
	adminSvc := NewAdminAuthService(cfg, repository.NewAdminRepository(env.db))

	token, _, err := adminSvc.GenerateJWT(&models.Admin{ID: 1, Username: "root"})
	require.NoError(t, err)
	_, err = userSvc.ParseUserJWT(token)
	require.Error(t, err)
}

func TestAdminAuthChangePasswordRevokesTokens(t *testing.T) {
	env := newCardTestEnv(t)
	require.NoError(t, env.db.AutoMigrate(&models.Admin{}))
	cfg := newAuthTestConfig()
	adminRepo := repository.NewAdminRepository(env.db)
	svc := NewAdminAuthService(cfg, adminRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &models.Admin{Username: "ops", PasswordHash: string(hash)}
	require.NoError(t, adminRepo.Create(admin))

	_, token, _, err := svc.Login("ops", "oldpass123")
	require.NoError(t, err)
	claims, err := svc.ParseJWT(token)
	require.NoError(t, err)
	_, err = svc.ResolveAdmin(context.Background(), claims)
	require.NoError(t, err)

	err = svc.ChangePassword(admin.ID, "wrong", "newpass123")
	require.ErrorIs(t, err, ErrInvalidPassword)
	err = svc.ChangePassword(admin.ID, "oldpass123", "short")
	var policyErr PasswordPolicyError
	require.True(t, errors.As(err, &policyErr))
	require.Equal(t, "error.password_min_length", policyErr.Key())

	require.NoError(t, svc.ChangePassword(admin.ID, "oldpass123", "newpass123"))
	_, err = svc.ResolveAdmin(context.Background(), claims)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, _, err = svc.Login("ops", "newpass123")
	require.NoError(t, err)
}
