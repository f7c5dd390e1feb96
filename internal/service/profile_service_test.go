package service

import (
	"context"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/auth"
	"fanova-be/pkg/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_EnsureProfileCreatesOnce(t *testing.T) {
	f := newFactory(t)
	svc := NewProfileService(f, nopLogger)
	ctx := context.Background()
	claims := &auth.Claims{Subject: uuid.New(), Email: "new@fanova.test", FullName: "New Comer"}

	created, err := svc.EnsureProfile(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, created.Id)
	assert.Equal(t, "New Comer", created.FullName)
	assert.Len(t, created.ReferralCode, referralCodeLength)
	assert.Zero(t, created.Credits)

	again, err := svc.EnsureProfile(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, created.ReferralCode, again.ReferralCode)

	count, err := f.NewUnitOfWork(ctx).ProfileRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProfile_EnsureProfileSyncsEmail(t *testing.T) {
	f := newFactory(t)
	svc := NewProfileService(f, nopLogger)
	existing := seedProfile(t, f, 0, "")

	profile, err := svc.EnsureProfile(context.Background(), &auth.Claims{Subject: existing.Id, Email: "changed@fanova.test"})
	require.NoError(t, err)
	assert.Equal(t, "changed@fanova.test", profile.Email)
	assert.Equal(t, "changed@fanova.test", reloadProfile(t, f, existing.Id).Email)
}

func TestProfile_PrincipalRoles(t *testing.T) {
	admin := entity.AdminRoleAdmin
	super := entity.AdminRoleSuperAdmin

	tests := []struct {
		name    string
		profile *entity.Profile
		want    auth.Role
	}{
		{"plain user", &entity.Profile{}, auth.RoleUser},
		{"admin", &entity.Profile{IsAdmin: true, AdminRole: &admin}, auth.RoleAdmin},
		{"super admin", &entity.Profile{IsAdmin: true, AdminRole: &super}, auth.RoleSuperAdmin},
		{"revoked role is ignored", &entity.Profile{IsAdmin: false, AdminRole: &super}, auth.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, principalOf(tt.profile).Role)
		})
	}

	locked := principalOf(&entity.Profile{IsLocked: true, IsBanned: true})
	assert.True(t, locked.IsLocked)
	assert.True(t, locked.IsBanned)
}

func TestProfile_GetAndUpdate(t *testing.T) {
	f := newFactory(t)
	svc := NewProfileService(f, nopLogger)
	user := seedProfile(t, f, 40, "")
	ctx := context.Background()

	res, err := svc.GetProfile(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Credits)
	assert.Equal(t, pricing.FreeGenerationLimit, res.FreeGenerationsLeft)

	updated, err := svc.UpdateProfile(ctx, user.Id, &dto.UpdateProfileRequest{FullName: "  Renamed  "})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)

	_, err = svc.UpdateProfile(ctx, user.Id, &dto.UpdateProfileRequest{FullName: "   "})
	assert.Error(t, err)
}

func TestNewReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := newReferralCode()
		require.NoError(t, err)
		assert.Len(t, code, referralCodeLength)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
