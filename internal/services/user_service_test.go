package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/tipoca/internal/models"
)

func newUserFixture() (*UserService, *memoryAccounts, *memoryTokens, *MockProfileRepository) {
	accounts := newMemoryAccounts()
	tokens := newMemoryTokens()
	profiles := &MockProfileRepository{}
	svc := NewUserService(accounts, profiles, tokens, testHasher, testLogger, testAuditLogger)
	return svc, accounts, tokens, profiles
}

func strPtr(s string) *string { return &s }

func TestUserService_UpdateMe(t *testing.T) {
	svc, accounts, _, _ := newUserFixture()
	a := accounts.add(testEmail, testPassword)

	updated, err := svc.UpdateMe(context.Background(), a.ID, models.AccountUpdate{
		Email:    strPtr(" New@B.com "),
		Password: strPtr(newPassword),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", updated.Email)
	assert.True(t, testHasher.Verify(newPassword, accounts.get(a.ID).PasswordHash))
}

func TestUserService_UpdateMe_SameEmailAllowed(t *testing.T) {
	svc, accounts, _, _ := newUserFixture()
	a := accounts.add(testEmail, testPassword)

	_, err := svc.UpdateMe(context.Background(), a.ID, models.AccountUpdate{Email: strPtr(testEmail)})
	assert.NoError(t, err)
}

func TestUserService_UpdateMe_EmailInUse(t *testing.T) {
	svc, accounts, _, _ := newUserFixture()
	a := accounts.add(testEmail, testPassword)
	accounts.add("taken@b.com", testPassword)

	_, err := svc.UpdateMe(context.Background(), a.ID, models.AccountUpdate{Email: strPtr("taken@b.com")})
	assert.True(t, errors.Is(err, models.ErrEmailInUse))
	assert.Equal(t, testEmail, accounts.get(a.ID).Email)
}

func TestUserService_DeleteMe(t *testing.T) {
	svc, accounts, tokens, _ := newUserFixture()
	a := accounts.add(testEmail, testPassword)
	ctx := context.Background()
	require.NoError(t, tokens.Save(ctx, "t1", a.ID))
	require.NoError(t, tokens.Save(ctx, "t2", a.ID))

	require.NoError(t, svc.DeleteMe(ctx, a.ID))

	_, err := accounts.FindByID(ctx, a.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	n, err := tokens.CountFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUserService_Profile(t *testing.T) {
	svc, _, _, profiles := newUserFixture()
	ctx := context.Background()

	p, err := svc.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, models.SkinToneNone, p.SkinTone)

	tone := models.SkinToneMedium
	profiles.UpdateFunc = func(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
		return &models.Profile{AccountID: accountID, FirstName: *u.FirstName, SkinTone: *u.SkinTone}, nil
	}
	p, err = svc.UpdateProfile(ctx, "acc-1", models.ProfileUpdate{FirstName: strPtr("Ada"), SkinTone: &tone})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, models.SkinToneMedium, p.SkinTone)
}

func TestUserService_Profile_Errors(t *testing.T) {
	svc, _, _, profiles := newUserFixture()
	profiles.FindByAccountIDFunc = func(ctx context.Context, accountID string) (*models.Profile, error) {
		return nil, errors.New("db down")
	}

	_, err := svc.GetProfile(context.Background(), "acc-1")
	assert.True(t, errors.Is(err, models.ErrInternalServer))

	_, err = svc.UpdateProfile(context.Background(), "acc-1", models.ProfileUpdate{})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserService_CreateProfile_AppliesFields(t *testing.T) {
	svc, _, _, profiles := newUserFixture()
	var stored *models.Profile
	profiles.CreateFunc = func(ctx context.Context, p *models.Profile) (*models.Profile, error) {
		stored = p
		return p, nil
	}

	tone := models.SkinToneDark
	p, err := svc.CreateProfile(context.Background(), "acct-1", models.ProfileUpdate{
		FirstName: strPtr("Ada"),
		SkinTone:  &tone,
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "acct-1", p.AccountID)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Empty(t, p.LastName)
	assert.Equal(t, models.SkinToneDark, p.SkinTone)
}

func TestUserService_CreateProfile_Exists(t *testing.T) {
	svc, _, _, profiles := newUserFixture()
	profiles.CreateFunc = func(ctx context.Context, p *models.Profile) (*models.Profile, error) {
		return nil, models.ErrConflict
	}

	_, err := svc.CreateProfile(context.Background(), "acct-1", models.ProfileUpdate{FirstName: strPtr("Ada")})
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestUserService_DeleteProfile_Missing(t *testing.T) {
	svc, _, _, profiles := newUserFixture()
	profiles.DeleteFunc = func(ctx context.Context, accountID string) error {
		return models.ErrNotFound
	}

	assert.True(t, errors.Is(svc.DeleteProfile(context.Background(), "acct-1"), models.ErrNotFound))
}

func TestUserService_GetAvatar_NoneIsNil(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	a, err := svc.GetAvatar(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Equal(t, "", a.DataURL())
}

func TestUserService_SetAvatar(t *testing.T) {
	pngAvatar := func() *models.Avatar {
		return &models.Avatar{AccountID: "acct-1", OriginalName: "me.png", MimeType: "image/png", Size: 3, Data: []byte{1, 2, 3}}
	}

	t.Run("first upload", func(t *testing.T) {
		svc, _, _, _ := newUserFixture()
		a, err := svc.SetAvatar(context.Background(), pngAvatar(), false)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AQID", a.DataURL())
	})

	t.Run("second upload conflicts", func(t *testing.T) {
		svc, _, _, profiles := newUserFixture()
		profiles.CreateAvatarFunc = func(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
			return nil, models.ErrConflict
		}
		_, err := svc.SetAvatar(context.Background(), pngAvatar(), false)
		assert.True(t, errors.Is(err, models.ErrConflict))
	})

	t.Run("replace without avatar", func(t *testing.T) {
		svc, _, _, _ := newUserFixture()
		_, err := svc.SetAvatar(context.Background(), pngAvatar(), true)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("unsupported type", func(t *testing.T) {
		svc, _, _, profiles := newUserFixture()
		profiles.CreateAvatarFunc = func(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
			t.Fatal("repository must not be called")
			return nil, nil
		}
		gif := pngAvatar()
		gif.MimeType = "image/gif"
		_, err := svc.SetAvatar(context.Background(), gif, false)
		assert.True(t, errors.Is(err, models.ErrBadRequest))
	})
}
