package service

import (
	"context"
	"testing"

	"tillsync/internal/dto"
	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users []model.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].Username == username {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListActiveSupervisors(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.Active && (u.Role == model.RoleSupervisor || u.Role == model.RoleAdmin) {
			out = append(out, u)
		}
	}
	return out, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func hashPin(t *testing.T, pin string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestValidatePin(t *testing.T) {
	supervisorID := uuid.New()
	repo := &fakeUserRepo{users: []model.User{
		{ID: supervisorID, Username: "ana", FullName: "Ana Torres", Role: model.RoleSupervisor, PinHash: hashPin(t, "4711"), Active: true},
	}}
	svc := NewAuthService(repo)

	resp, err := svc.ValidatePin(context.Background(), dto.ValidatePinRequest{Pin: "4711"})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, supervisorID.String(), resp.AuthorizedBy)
	assert.Equal(t, "Ana Torres", resp.FullName)
}

func TestValidatePinWrongPin(t *testing.T) {
	repo := &fakeUserRepo{users: []model.User{
		{ID: uuid.New(), Username: "ana", Role: model.RoleSupervisor, PinHash: hashPin(t, "4711"), Active: true},
	}}
	svc := NewAuthService(repo)

	resp, err := svc.ValidatePin(context.Background(), dto.ValidatePinRequest{Pin: "0000"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Empty(t, resp.AuthorizedBy)
}

func TestValidatePinIgnoresCashiersAndInactive(t *testing.T) {
	repo := &fakeUserRepo{users: []model.User{
		{ID: uuid.New(), Username: "cashier", Role: model.RoleCashier, PinHash: hashPin(t, "1111"), Active: true},
		{ID: uuid.New(), Username: "gone", Role: model.RoleSupervisor, PinHash: hashPin(t, "2222"), Active: false},
	}}
	svc := NewAuthService(repo)

	for _, pin := range []string{"1111", "2222"} {
		resp, err := svc.ValidatePin(context.Background(), dto.ValidatePinRequest{Pin: pin})
		require.NoError(t, err)
		assert.False(t, resp.Valid, "pin %s must not authorize", pin)
	}
}
