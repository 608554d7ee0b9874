package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/internal/users"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/security"
)

func newRegisterService(t *testing.T) (RegisterService, *users.Repository) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	svc, err := NewRegisterService(RegisterServiceParams{Users: repo, PasswordConfig: config.PasswordConfig{}})
	require.NoError(t, err)
	return svc, repo
}

func validRegisterRequest() RegisterRequest {
	phone := " 0901234567 "
	return RegisterRequest{
		FullName:  "Nguyen Van A",
		Email:     "  Photo@Example.com ",
		Password:  "super-secret",
		Phone:     &phone,
		Role:      enums.RolePhotographer,
		AcceptTOS: true,
	}
}

func TestRegister_CreatesPhotographer(t *testing.T) {
	svc, repo := newRegisterService(t)

	dto, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, "photo@example.com", dto.Email)
	assert.Equal(t, enums.RolePhotographer, dto.Role)
	require.NotNil(t, dto.Phone)
	assert.Equal(t, "0901234567", *dto.Phone)
	assert.True(t, dto.IsActive)

	stored, err := repo.FindByEmail(context.Background(), "photo@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("super-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _ := newRegisterService(t)
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newRegisterService(t)

	cases := map[string]func(*RegisterRequest){
		"admin role":     func(r *RegisterRequest) { r.Role = enums.RoleAdmin },
		"short password": func(r *RegisterRequest) { r.Password = "short" },
		"missing tos":    func(r *RegisterRequest) { r.AcceptTOS = false },
		"blank name":     func(r *RegisterRequest) { r.FullName = "  " },
		"blank email":    func(r *RegisterRequest) { r.Email = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegisterRequest()
			mutate(&req)
			_, err := svc.Register(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}
