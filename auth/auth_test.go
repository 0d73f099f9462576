package auth_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"nongxian/apperr"
	"nongxian/auth"
	"nongxian/db"
	"nongxian/middleware"
	"nongxian/models"
	"nongxian/permissions"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, users ...models.AdminUser) (*auth.Service, *db.Repos) {
	t.Helper()
	repos := db.NewMemoryRepos()
	for _, u := range users {
		require.NoError(t, repos.Admins.AddWithID(context.Background(), u.UID, u))
	}
	return auth.NewService(repos.Admins, 12*time.Hour).WithClock(func() time.Time { return now }), repos
}

func user(t *testing.T, uid, email, role string, active bool) models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	return models.AdminUser{UID: uid, Email: email, Role: role, IsActive: active, PasswordHash: string(hash), CreatedAt: now}
}

func TestLogin(t *testing.T) {
	svc, repos := newService(t, user(t, "u1", "mod@nongxian.tw", models.RoleModerator, true))
	ctx := context.Background()
	current := time.Now().UTC().Truncate(time.Millisecond)
	svc.WithClock(func() time.Time { return current })

	session, err := svc.Login(ctx, " MOD@nongxian.tw ", "password1")
	require.NoError(t, err)
	assert.Equal(t, current.Add(12*time.Hour), session.ExpiresAt)
	assert.ElementsMatch(t, []string{permissions.ProductManagement, permissions.OrderManagement, permissions.CategoryManagement}, session.Permissions)

	claims, err := middleware.ValidateJWT("Bearer " + session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)

	stored, err := repos.Admins.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(current))
}

func TestLogin_Rejected(t *testing.T) {
	svc, _ := newService(t,
		user(t, "u1", "a@nongxian.tw", models.RoleAdmin, true),
		user(t, "u2", "off@nongxian.tw", models.RoleAdmin, false),
	)
	ctx := context.Background()

	_, err := svc.Login(ctx, "a@nongxian.tw", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@nongxian.tw", "password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "off@nongxian.tw", "password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginHandler_Unauthorized(t *testing.T) {
	svc, _ := newService(t, user(t, "u1", "a@nongxian.tw", models.RoleAdmin, true))

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"email":"a@nongxian.tw","password":"nope"}`)
	svc.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.ErrInvalidCredentials.Error())
}

func TestUserManagement(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, auth.UserInput{Email: "Staff@nongxian.tw", Password: "secret1", Role: models.RoleUser, Permissions: []string{permissions.CouponManagement}})
	require.NoError(t, err)
	assert.Equal(t, "staff@nongxian.tw", u.Email)
	assert.True(t, u.IsActive)

	_, err = svc.CreateUser(ctx, auth.UserInput{Email: "staff@nongxian.tw", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
	_, err = svc.CreateUser(ctx, auth.UserInput{Email: "x@nongxian.tw", Password: "secret1", Permissions: []string{"root"}})
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = svc.CreateUser(ctx, auth.UserInput{Email: "y@nongxian.tw", Password: "123"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	session, err := svc.Login(ctx, "staff@nongxian.tw", "secret1")
	require.NoError(t, err)
	assert.Equal(t, []string{permissions.CouponManagement}, session.Permissions)

	off := false
	role := "superuser"
	_, err = svc.UpdateUser(ctx, u.UID, auth.UserPatch{Role: &role})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = svc.UpdateUser(ctx, u.UID, auth.UserPatch{IsActive: &off})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "staff@nongxian.tw", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.True(t, apperr.Is(svc.DeleteUser(ctx, u.UID, u.UID), apperr.Validation))
	require.NoError(t, svc.DeleteUser(ctx, u.UID, "someone-else"))
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
