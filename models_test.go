package authkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestUserLoginSetLocked(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &UserLogin{}

	assert.False(t, u.setLocked(false, at, "alice"), "already unlocked")

	require.True(t, u.setLocked(true, at, "alice"))
	assert.True(t, u.Locked)
	assert.Equal(t, "alice", u.LockedBy)
	assert.Equal(t, at, *u.LockedAt)

	assert.False(t, u.setLocked(true, at.Add(time.Hour), "bob"))
	assert.Equal(t, "alice", u.LockedBy)

	require.True(t, u.setLocked(false, at, "bob"))
	assert.False(t, u.Locked)
	assert.Nil(t, u.LockedAt)
	assert.Empty(t, u.LockedBy)
}

func TestAuditFieldsStamp(t *testing.T) {
	ctx := WithAuthentication(context.Background(), Authenticated("alice"))

	a := &AuditFields{}
	a.stamp(ctx, &bun.InsertQuery{})
	require.NotNil(t, a.CreatedAt)
	require.NotNil(t, a.UpdatedAt)
	assert.Equal(t, "alice", a.CreatedBy)
	assert.Equal(t, "alice", a.UpdatedBy)

	created := *a.CreatedAt
	a.stamp(WithAuthentication(context.Background(), Authenticated("bob")), &bun.UpdateQuery{})
	assert.Equal(t, created, *a.CreatedAt)
	assert.Equal(t, "alice", a.CreatedBy)
	assert.Equal(t, "bob", a.UpdatedBy)
}

func TestAuditFieldsStampAnonymous(t *testing.T) {
	a := &AuditFields{}
	a.stamp(context.Background(), &bun.InsertQuery{})
	assert.NotNil(t, a.CreatedAt)
	assert.Empty(t, a.CreatedBy)
	assert.Empty(t, a.UpdatedBy)
}

func TestModelValidate(t *testing.T) {
	assert.Error(t, LoginRole{}.Validate())
	assert.NoError(t, LoginRole{Name: "admin"}.Validate())

	assert.Error(t, UserLogin{Username: "ab"}.Validate())
	assert.NoError(t, UserLogin{Username: "alice"}.Validate())
}

func TestNewUserLoginInfo(t *testing.T) {
	assert.Nil(t, NewUserLoginInfo(nil))

	id := uuid.New()
	info := NewUserLoginInfo(&UserLogin{
		ID:       id,
		Username: "alice",
		Active:   true,
		Avatar:   []byte{1},
		Role:     &LoginRole{Name: "admin"},
	})

	assert.Equal(t, id, info.ID)
	assert.Equal(t, "admin", info.RoleName)
	assert.True(t, info.HasAvatar)
}
