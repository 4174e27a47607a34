package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu       sync.Mutex
	welcomes []string
}

func (m *fakeMailer) SendWelcome(toEmail, fullName string, startingCredits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, toEmail)
	return nil
}

func (m *fakeMailer) SendLowBalanceAlert(toEmail string, balance int) error { return nil }

func (m *fakeMailer) SendPurchaseReceipt(toEmail string, creditsAdded int, amount float64) error {
	return nil
}

func newTestAuth(t *testing.T) (IAuthService, unitofwork.RepositoryFactory) {
	t.Helper()
	factory, _ := newTestFactory(t)
	svc := NewAuthService(factory, &fakeMailer{}, nil, "test_secret", testCreditConfig())
	return svc, factory
}

func registerRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		FullName: "Maria Silva",
		Email:    "maria@example.com",
		Password: "valid-password",
	}
}

func TestRegisterGrantsStarterCredits(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestAuth(t)

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Credits)

	uow := factory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: "maria@example.com"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 100, user.Credits)
	assert.Equal(t, entity.PlanFree, user.Plan)
	assert.Equal(t, entity.UserRoleUser, user.Role)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "valid-password", *user.PasswordHash)

	// The usage record is seeded at signup.
	usage, err := uow.UsageRepository().FindOne(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, 2000, usage.AvailableTokens)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest())
	assert.True(t, errors.Is(err, ErrEmailAlreadyUsed))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "maria@example.com", Password: "valid-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "maria@example.com", resp.User.Email)

	token, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test_secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.Id.String(), claims["user_id"])
	assert.Equal(t, entity.UserRoleUser, claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "maria@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "valid-password"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestLoginBlockedAccount(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestAuth(t)

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.UserRepository().UpdateStatus(ctx, resp.Id, entity.UserStatusBlocked))

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "maria@example.com", Password: "valid-password"})
	assert.True(t, errors.Is(err, ErrAccountBlocked))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.Id, &dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "next-password",
	})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	err = svc.ChangePassword(ctx, resp.Id, &dto.ChangePasswordRequest{
		CurrentPassword: "valid-password",
		NewPassword:     "next-password",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "maria@example.com", Password: "next-password"})
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	resp, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, resp.Id, &dto.UpdateProfileRequest{
		FullName:  "Maria S. Oliveira",
		OabNumber: "SP123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria S. Oliveira", updated.FullName)
	require.NotNil(t, updated.OabNumber)
	assert.Equal(t, "SP123456", *updated.OabNumber)
}
