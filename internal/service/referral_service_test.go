package service

import (
	"context"
	"strings"
	"testing"

	"fanova-be/internal/dto"
	"fanova-be/internal/entity"
	"fanova-be/internal/pkg/apperror"
	"fanova-be/pkg/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferral_ProcessCreditsBothSidesOnce(t *testing.T) {
	f := newFactory(t)
	svc := NewReferralService(f, "https://fanova.test/", nil, nil, nopLogger)
	referrer := seedProfile(t, f, 5, "")
	newcomer := seedProfile(t, f, 0, "")
	ctx := context.Background()

	// 1. First use credits both sides
	res, err := svc.ProcessReferral(ctx, newcomer.Id, &dto.ProcessReferralRequest{ReferralCode: strings.ToLower(referrer.ReferralCode)})
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.Equal(t, pricing.ReferralBonus, res.CreditsAdded)
	assert.Equal(t, 20, res.Balance)

	assert.Equal(t, 25, reloadProfile(t, f, referrer.Id).Credits)
	reloaded := reloadProfile(t, f, newcomer.Id)
	assert.Equal(t, 20, reloaded.Credits)
	require.NotNil(t, reloaded.ReferredBy)
	assert.Equal(t, referrer.Id, *reloaded.ReferredBy)

	// 2. A repeat is acknowledged without effect
	again, err := svc.ProcessReferral(ctx, newcomer.Id, &dto.ProcessReferralRequest{ReferralCode: referrer.ReferralCode})
	require.NoError(t, err)
	assert.False(t, again.Processed)
	assert.Equal(t, 20, again.Balance)
	assert.Equal(t, 25, reloadProfile(t, f, referrer.Id).Credits)

	rows := ledgerOf(t, f, newcomer.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.CreditTypeReferralBonus, rows[0].Type)
	require.NotNil(t, rows[0].Reference)
	assert.Equal(t, "referral:"+newcomer.Id.String()+":referred", *rows[0].Reference)
}

func TestReferral_Rejections(t *testing.T) {
	f := newFactory(t)
	svc := NewReferralService(f, "https://fanova.test", nil, nil, nopLogger)
	user := seedProfile(t, f, 0, "")
	ctx := context.Background()

	_, err := svc.ProcessReferral(ctx, user.Id, &dto.ProcessReferralRequest{ReferralCode: user.ReferralCode})
	assert.ErrorIs(t, err, apperror.ErrSelfReferral)

	_, err = svc.ProcessReferral(ctx, user.Id, &dto.ProcessReferralRequest{ReferralCode: "NOPE1234"})
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, err))

	assert.Equal(t, 0, reloadProfile(t, f, user.Id).Credits)
	assert.Empty(t, ledgerOf(t, f, user.Id))
}

func TestReferral_LinkAndStats(t *testing.T) {
	f := newFactory(t)
	svc := NewReferralService(f, "https://fanova.test/", nil, nil, nopLogger)
	referrer := seedProfile(t, f, 0, "")
	ctx := context.Background()

	link, err := svc.GetMyLink(ctx, referrer.Id)
	require.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, link.Code)
	assert.Equal(t, "https://fanova.test/signup?ref="+referrer.ReferralCode, link.Link)

	for i := 0; i < 2; i++ {
		friend := seedProfile(t, f, 0, "")
		_, err := svc.ProcessReferral(ctx, friend.Id, &dto.ProcessReferralRequest{ReferralCode: referrer.ReferralCode})
		require.NoError(t, err)
	}

	stats, err := svc.GetStats(ctx, referrer.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalReferrals)
	assert.Equal(t, 2*pricing.ReferralBonus, stats.CreditsEarned)
	require.Len(t, stats.Referred, 2)
	for _, r := range stats.Referred {
		assert.Contains(t, r.Email, "***@example.com")
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@x.com", maskEmail("jane@x.com"))
	assert.Equal(t, "***", maskEmail("broken"))
	assert.Equal(t, "***", maskEmail(""))
}
