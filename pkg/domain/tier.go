package domain

// SubscriptionTier represents a billing tier as consumed by this engine.
// Billing itself is an external system; the tier arrives here as a string
// on the owning account and is only used to look up feature limits.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierBusiness   SubscriptionTier = "business"
	TierEnterprise SubscriptionTier = "enterprise"
)

// ParseSubscriptionTier maps a raw tier string to a known tier.
// Unrecognized values fall back to free rather than erroring: a stale or
// malformed tier must never block scan traffic.
func ParseSubscriptionTier(s string) SubscriptionTier {
	t := SubscriptionTier(s)
	if t.IsValid() {
		return t
	}
	return TierFree
}

// IsValid reports whether the tier is one of the supported values.
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierBusiness, TierEnterprise:
		return true
	}
	return false
}

// String returns the string representation.
func (t SubscriptionTier) String() string {
	return string(t)
}
