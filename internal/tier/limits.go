// Package tier translates a subscription tier into the feature flags and
// numeric limits the engine enforces. The table is immutable configuration
// injected at construction time; billing itself lives outside this service.
package tier

import (
	id "qrflow/pkg/domain"
)

// TierLimits is the per-tier capability and limit record.
// Nil numeric limits mean unlimited.
type TierLimits struct {
	MaxExpirationDays       *int
	MaxScanLimit            *int
	AllowPasswordProtection bool
	AllowScheduling         bool
	AllowUnlimitedScans     bool
}

// Limits maps subscription tiers to their limits.
type Limits map[id.SubscriptionTier]TierLimits

func intPtr(v int) *int { return &v }

// DefaultLimits returns the standard tier table. Callers may override via
// configuration, but the shape is fixed.
func DefaultLimits() Limits {
	return Limits{
		id.TierFree: {
			MaxExpirationDays:       intPtr(30),
			MaxScanLimit:            intPtr(1000),
			AllowPasswordProtection: false,
			AllowScheduling:         false,
			AllowUnlimitedScans:     false,
		},
		id.TierPro: {
			MaxExpirationDays:       intPtr(365),
			MaxScanLimit:            intPtr(100000),
			AllowPasswordProtection: true,
			AllowScheduling:         true,
			AllowUnlimitedScans:     false,
		},
		id.TierBusiness: {
			MaxExpirationDays:       nil,
			MaxScanLimit:            nil,
			AllowPasswordProtection: true,
			AllowScheduling:         true,
			AllowUnlimitedScans:     true,
		},
		id.TierEnterprise: {
			MaxExpirationDays:       nil,
			MaxScanLimit:            nil,
			AllowPasswordProtection: true,
			AllowScheduling:         true,
			AllowUnlimitedScans:     true,
		},
	}
}

// ForTier looks up the limits for a tier, falling back to free for
// unrecognized values.
func (l Limits) ForTier(t id.SubscriptionTier) TierLimits {
	if limits, ok := l[t]; ok {
		return limits
	}
	return l[id.TierFree]
}
