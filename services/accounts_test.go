package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"multiplication-shooter/models"
)

func googleIdentity(sub, email string) *Identity {
	return &Identity{
		ExternalID:    sub,
		Email:         email,
		Name:          "Ana",
		Lastname:      models.StringPtr("García"),
		AvatarURL:     models.StringPtr("https://example.com/a.png"),
		EmailVerified: true,
	}
}

func TestResolveCreatesStudentOnFirstLogin(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())

	user, err := dir.Resolve(context.Background(), googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)

	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.ExternalID)
	assert.Equal(t, "sub-1", *user.ExternalID)
	assert.Equal(t, "Ana García", user.FullName())
	assert.Nil(t, user.Group)

	again, err := dir.Resolve(context.Background(), googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveAttachesIdentityToRosterRow(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())

	roster := &models.User{
		ID:    uuid.NewString(),
		Email: "ana@example.com",
		Name:  models.StringPtr("Ana María"),
		Role:  models.RoleStudent,
		Group: models.StringPtr("5A"),
	}
	require.NoError(t, db.Create(roster).Error)

	user, err := dir.Resolve(context.Background(), googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)

	assert.Equal(t, roster.ID, user.ID)
	require.NotNil(t, user.ExternalID)
	assert.Equal(t, "sub-1", *user.ExternalID)
	// Roster name stays; empty lastname and avatar are filled from the token.
	assert.Equal(t, "Ana María", *user.Name)
	assert.Equal(t, "García", *user.Lastname)
	assert.Equal(t, "https://example.com/a.png", *user.AvatarURL)
	assert.Equal(t, "5A", *user.Group)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveRefreshesAvatarOnly(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())
	ctx := context.Background()

	_, err := dir.Resolve(ctx, googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)

	changed := googleIdentity("sub-1", "ana@example.com")
	changed.Name = "Someone Else"
	changed.AvatarURL = models.StringPtr("https://example.com/b.png")

	user, err := dir.Resolve(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, "Ana", *user.Name)
	assert.Equal(t, "https://example.com/b.png", *user.AvatarURL)
}

func TestResolveRefusesEmailLinkedToAnotherIdentity(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())
	ctx := context.Background()

	_, err := dir.Resolve(ctx, googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)

	_, err = dir.Resolve(ctx, googleIdentity("sub-2", "ana@example.com"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestResolveRefusesUnverifiedEmailForRosterRow(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())
	ctx := context.Background()

	roster := &models.User{
		ID:    uuid.NewString(),
		Email: "ana@example.com",
		Role:  models.RoleStudent,
		Group: models.StringPtr("5A"),
	}
	require.NoError(t, db.Create(roster).Error)

	unverified := googleIdentity("sub-1", "ana@example.com")
	unverified.EmailVerified = false

	_, err := dir.Resolve(ctx, unverified)
	assert.ErrorIs(t, err, ErrForbidden)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", roster.ID).Error)
	assert.Nil(t, stored.ExternalID)

	// A brand new account needs no email match, so it is still created.
	fresh := googleIdentity("sub-2", "luis@example.com")
	fresh.EmailVerified = false
	user, err := dir.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "sub-2", *user.ExternalID)
}

func TestResolveRejectsIncompleteIdentity(t *testing.T) {
	dir := NewAccountDirectory(newTestDB(t), zap.NewNop())

	_, err := dir.Resolve(context.Background(), &Identity{Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = dir.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRecordLogin(t *testing.T) {
	db := newTestDB(t)
	dir := NewAccountDirectory(db, zap.NewNop())
	ctx := context.Background()

	user, err := dir.Resolve(ctx, googleIdentity("sub-1", "ana@example.com"))
	require.NoError(t, err)
	require.NoError(t, dir.RecordLogin(ctx, user, "10.0.0.1", "test-agent"))

	var logins []models.UserLogin
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&logins).Error)
	require.Len(t, logins, 1)
	assert.Equal(t, "10.0.0.1", logins[0].IPAddress)
	assert.Equal(t, "test-agent", logins[0].UserAgent)
	assert.False(t, logins[0].LoggedInAt.IsZero())
}
