package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
	"github.com/acadops/timetable-backend/internal/repository/memory"
)

const adminID = int64(1)

func newUserFixture(t *testing.T) (*UserService, *memory.UsersRepo, *memory.AuditRepo) {
	t.Helper()
	users := memory.NewUsers()
	audit := memory.NewAuditEntries()
	return NewUserService(users, NewAuditService(audit, nil)), users, audit
}

func TestCreateUser(t *testing.T) {
	svc, _, audit := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "hank",
		Email:    "hank@example.com",
		Password: "a-password",
		FullName: "Hank Hill",
		Role:     models.RoleStudent,
		IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.True(t, auth.VerifyPassword("a-password", u.HashedPassword))

	entries := audit.All()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	require.NotNil(t, entries[0].EntityID)
	assert.Equal(t, u.ID, *entries[0].EntityID)
}

func TestCreateUserDuplicates(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	in := CreateUser{Username: "ivy", Email: "ivy@example.com", Password: "a-password", Role: models.RoleFaculty, IsActive: true}
	_, err := svc.Create(ctx, adminID, in, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, adminID, in, RequestMeta{})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	in.Username = "ivy2"
	_, err = svc.Create(ctx, adminID, in, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUserAuditsBeforeAfter(t *testing.T) {
	svc, _, audit := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "judy", Email: "judy@example.com", Password: "a-password",
		FullName: "Judy", Role: models.RoleStudent, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)

	role := models.RoleFaculty
	updated, err := svc.Update(ctx, adminID, u.ID, UpdateUser{Role: &role}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, updated.Role)

	entries := audit.All()
	require.Len(t, entries, 2)
	e := entries[1]
	assert.Equal(t, models.ActionUpdate, e.Action)

	before, ok := e.Changes["before"].(map[string]any)
	require.True(t, ok)
	after, ok := e.Changes["after"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "student", before["role"])
	assert.Equal(t, "faculty", after["role"])

	// Audit payloads never carry credential material.
	for _, m := range []map[string]any{before, after} {
		assert.NotContains(t, m, "password")
		assert.NotContains(t, m, "hashed_password")
		assert.NotContains(t, m, "reset_token")
	}
}

func TestDeleteUser(t *testing.T) {
	svc, users, audit := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "kyle", Email: "kyle@example.com", Password: "a-password",
		Role: models.RoleStudent, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, adminID, u.ID, RequestMeta{}))
	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries := audit.All()
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionDelete, entries[1].Action)
	before, ok := entries[1].Changes["before"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "kyle", before["username"])

	assert.ErrorIs(t, svc.Delete(ctx, adminID, u.ID, RequestMeta{}), ErrNotFound)
}

func TestUpdateSelf(t *testing.T) {
	svc, _, audit := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "lena", Email: "lena@example.com", Password: "a-password",
		FullName: "Lena", Role: models.RoleStudent, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)

	name := "Lena Q."
	email := "lena.q@example.com"
	updated, err := svc.UpdateSelf(ctx, u.ID, UpdateProfile{Email: &email, FullName: &name}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "lena.q@example.com", updated.Email)
	assert.Equal(t, "Lena Q.", updated.FullName)

	entries := audit.All()
	require.Len(t, entries, 2)
	e := entries[1]
	assert.Equal(t, models.ActionUpdate, e.Action)
	require.NotNil(t, e.ActorID)
	assert.Equal(t, u.ID, *e.ActorID, "self updates are attributed to the user")
	before := e.Changes["before"].(map[string]any)
	after := e.Changes["after"].(map[string]any)
	assert.Equal(t, "lena@example.com", before["email"])
	assert.Equal(t, "lena.q@example.com", after["email"])
}

func TestUpdateSelfEmailConflict(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, adminID, CreateUser{
		Username: "mona", Email: "mona@example.com", Password: "a-password",
		Role: models.RoleStudent, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)
	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "nina", Email: "nina@example.com", Password: "a-password",
		Role: models.RoleStudent, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)

	taken := "mona@example.com"
	_, err = svc.UpdateSelf(ctx, u.ID, UpdateProfile{Email: &taken}, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Re-submitting the current address is not a conflict.
	own := "nina@example.com"
	_, err = svc.UpdateSelf(ctx, u.ID, UpdateProfile{Email: &own}, RequestMeta{})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, users, audit := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, adminID, CreateUser{
		Username: "omar", Email: "omar@example.com", Password: "old-password",
		Role: models.RoleFaculty, IsActive: true,
	}, RequestMeta{})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "not-the-password", "new-password", RequestMeta{})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old-password", "new-password", RequestMeta{}))

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("new-password", stored.HashedPassword))
	assert.False(t, auth.VerifyPassword("old-password", stored.HashedPassword))

	// The failed attempt leaves nothing; the success logs no password
	// material.
	entries := audit.All()
	require.Len(t, entries, 2)
	e := entries[1]
	assert.Equal(t, models.ActionUpdate, e.Action)
	assert.Equal(t, "password changed", e.Changes["action_description"])
	assert.NotContains(t, e.Changes, "before")
	assert.NotContains(t, e.Changes, "after")
	assert.NotContains(t, e.Changes, "new_password")
}

func TestListUsersFilter(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	for i, role := range []models.Role{models.RoleAdmin, models.RoleFaculty, models.RoleFaculty, models.RoleStudent} {
		_, err := svc.Create(ctx, adminID, CreateUser{
			Username: "user" + string(rune('a'+i)),
			Email:    "user" + string(rune('a'+i)) + "@example.com",
			Password: "a-password",
			Role:     role,
			IsActive: true,
		}, RequestMeta{})
		require.NoError(t, err)
	}

	faculty := models.RoleFaculty
	users, total, err := svc.List(ctx, repo.UserFilter{Role: &faculty}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = svc.List(ctx, repo.UserFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, users, 4, "default limit applies")
}
