package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
)

type stubUserInfo struct {
	info  *Auth0UserInfo
	err   error
	calls int
}

func (s *stubUserInfo) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	s.calls++
	return s.info, s.err
}

func strPtr(s string) *string { return &s }

func TestUserUpsertCreatesCustomerByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := &stubUserInfo{info: &Auth0UserInfo{Email: "new@example.com", Name: "New User", Picture: "https://img/p.png"}}
	users := NewUserService(f.store.Users, info, nil, nil)

	actor := Identity{ID: "auth0|new", Role: models.RoleCustomer}
	user, created, err := users.Upsert(ctx, actor, "access-token", UpsertUserInput{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleCustomer, user.Role, "admin is never self-granted")
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "New User", user.Name)
	assert.Equal(t, "https://img/p.png", user.PhotoURL)
	assert.Equal(t, 1, info.calls)

	user, created, err = users.Upsert(ctx, actor, "access-token", UpsertUserInput{DisplayName: strPtr("Newbie")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Newbie", user.DisplayName)
	assert.Equal(t, "new@example.com", user.Email)
}

func TestUserUpsertProviderEscalation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actor := Identity{ID: "u-1", Email: "u1@example.com", Name: "U One", Role: models.RoleCustomer}
	_, _, err := f.users.Upsert(ctx, actor, "", UpsertUserInput{})
	require.NoError(t, err)

	user, _, err := f.users.Upsert(ctx, actor, "", UpsertUserInput{Role: models.RoleProvider})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProvider, user.Role)

	user, _, err = f.users.Upsert(ctx, actor, "", UpsertUserInput{Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProvider, user.Role, "upsert never demotes")
}

func TestUserUpsertUserInfoFailureIsTolerated(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.store.Users, &stubUserInfo{err: errors.New("auth0 down")}, nil, nil)

	user, created, err := users.Upsert(context.Background(), Identity{ID: "u-2", Role: models.RoleCustomer}, "tok", UpsertUserInput{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, user.Email)
}

func TestUserVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token := "fcm-token"
	require.NoError(t, f.store.Users.Create(ctx, &models.User{
		ID: customer.ID, Email: "asha@example.com", PhoneNumber: "9999999999", FCMToken: &token, Role: models.RoleCustomer,
	}))

	self, err := f.users.Me(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", self.Email)
	assert.Nil(t, self.FCMToken)

	other, err := f.users.Get(ctx, provider, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Email)
	assert.Empty(t, other.PhoneNumber)

	full, err := f.users.Get(ctx, admin, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, full.FCMToken)
	assert.Equal(t, token, *full.FCMToken)

	_, err = f.users.Get(ctx, admin, "missing")
	assertAppError(t, err, apperrors.CodeNotFound, "")
}

func TestUserFCMToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users.Create(ctx, &models.User{ID: customer.ID, Role: models.RoleCustomer}))

	assertAppError(t, f.users.UpdateFCMToken(ctx, customer, "someone-else", "tok"), apperrors.CodeForbidden, "")
	assertAppError(t, f.users.UpdateFCMToken(ctx, customer, customer.ID, "  "), apperrors.CodeValidation, "")
	require.NoError(t, f.users.UpdateFCMToken(ctx, customer, customer.ID, "tok-2"))

	stored, err := f.store.Users.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FCMToken)
	assert.Equal(t, "tok-2", *stored.FCMToken)
}

func TestUserUpdateMeIgnoresRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users.Create(ctx, &models.User{ID: customer.ID, Role: models.RoleCustomer}))

	user, err := f.users.UpdateMe(ctx, customer, UpsertUserInput{Name: strPtr("Asha R"), Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", user.Name)
	assert.Equal(t, models.RoleCustomer, user.Role)
}

func TestUserChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users.Create(ctx, &models.User{ID: customer.ID, Role: models.RoleCustomer}))

	_, err := f.users.ChangeRole(ctx, provider, customer.ID, models.RoleAdmin)
	assertAppError(t, err, apperrors.CodeForbidden, "common.forbidden")

	_, err = f.users.ChangeRole(ctx, admin, customer.ID, "owner")
	assertAppError(t, err, apperrors.CodeValidation, "")

	_, err = f.users.ChangeRole(ctx, admin, admin.ID, models.RoleCustomer)
	assertAppError(t, err, apperrors.CodeValidation, "")

	user, err := f.users.ChangeRole(ctx, admin, customer.ID, models.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProvider, user.Role)

	_, err = f.users.ChangeRole(ctx, admin, customer.ID, models.RoleProvider)
	require.NoError(t, err)

	logs, err := f.users.RoleChanges(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RoleCustomer, logs[0].OldRole)
	assert.Equal(t, models.RoleProvider, logs[0].NewRole)
	assert.Equal(t, admin.ID, logs[0].ChangedBy)

	list, total, err := f.users.List(ctx, admin, UserListInput{Role: models.RoleProvider})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, customer.ID, list[0].ID)

	_, _, err = f.users.List(ctx, admin, UserListInput{Role: "owner"})
	assertAppError(t, err, apperrors.CodeValidation, "")
}
