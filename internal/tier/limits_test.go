package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "qrflow/pkg/domain"
)

func TestForTierFallsBackToFree(t *testing.T) {
	limits := DefaultLimits()

	got := limits.ForTier(id.SubscriptionTier("platinum"))
	assert.Equal(t, limits[id.TierFree], got)
}

func TestDefaultLimitsShape(t *testing.T) {
	limits := DefaultLimits()

	free := limits.ForTier(id.TierFree)
	assert.False(t, free.AllowPasswordProtection)
	assert.False(t, free.AllowScheduling)
	assert.False(t, free.AllowUnlimitedScans)
	assert.NotNil(t, free.MaxScanLimit)
	assert.NotNil(t, free.MaxExpirationDays)

	pro := limits.ForTier(id.TierPro)
	assert.True(t, pro.AllowPasswordProtection)
	assert.True(t, pro.AllowScheduling)
	assert.False(t, pro.AllowUnlimitedScans)

	for _, tr := range []id.SubscriptionTier{id.TierBusiness, id.TierEnterprise} {
		got := limits.ForTier(tr)
		assert.True(t, got.AllowUnlimitedScans, "tier %s", tr)
		assert.Nil(t, got.MaxScanLimit, "tier %s", tr)
		assert.Nil(t, got.MaxExpirationDays, "tier %s", tr)
	}
}
