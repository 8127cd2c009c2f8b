package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/pkg/auth"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/security"
)

func newService(t *testing.T) (*Service, auth.JWTService) {
	t.Helper()
	jwtSvc, err := auth.NewJWTService("test-secret", "booking-api", time.Hour)
	require.NoError(t, err)
	return NewService(memory.NewStore().Users(), jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), nil), jwtSvc
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	registered, err := svc.Register(ctx, &model.RegisterRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, registered.UserID)

	login, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, registered.UserID, login.User.ID)
	assert.Equal(t, model.RoleAdmin, login.User.Role)

	actor, err := svc.ValidateToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: registered.UserID, Role: model.RoleAdmin}, actor)
}

func TestService_Register_DefaultsToCustomer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, &model.RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "secret1"})
	require.NoError(t, err)

	login, err := svc.Login(ctx, "bo@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, login.User.Role)
}

func TestService_Register_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, &model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *model.RegisterRequest
		kind apperrors.Kind
	}{
		{"duplicate email", &model.RegisterRequest{Name: "Ana 2", Email: "ana@example.com", Password: "secret1"}, apperrors.KindConflict},
		{"short password", &model.RegisterRequest{Name: "Cy", Email: "cy@example.com", Password: "123"}, apperrors.KindValidation},
		{"missing name", &model.RegisterRequest{Email: "dee@example.com", Password: "secret1"}, apperrors.KindValidation},
		{"unknown role", &model.RegisterRequest{Name: "Ed", Email: "ed@example.com", Password: "secret1", Role: "owner"}, apperrors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, &model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	for _, creds := range [][2]string{
		{"ana@example.com", "wrong-password"},
		{"nobody@example.com", "secret1"},
	} {
		_, err := svc.Login(ctx, creds[0], creds[1])
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindValidation, appErr.Kind)
		assert.Equal(t, "invalid credentials", appErr.Message)
	}
}

func TestService_ValidateToken_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, jwtSvc := newService(t)

	_, err := svc.ValidateToken(ctx, "not-a-token")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	token, err := jwtSvc.GenerateToken(uuid.New(), "superuser")
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, token)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	other, err := auth.NewJWTService("other-secret", "booking-api", time.Hour)
	require.NoError(t, err)
	foreign, err := other.GenerateToken(uuid.New(), "customer")
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, foreign)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}
