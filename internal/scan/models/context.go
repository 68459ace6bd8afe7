// Package models defines the ephemeral scan-side types: the per-scan context
// assembled at the HTTP boundary and the results produced by the validity
// checker and the resolution pipeline. Nothing here is persisted; a context
// lives for exactly one scan and then feeds a single analytics event.
package models

import (
	"time"

	qrmodels "qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location describes where a scan originated, as far as the boundary layer
// could resolve it. A nil Location means geography is unknown; location
// rules never match in that case.
type Location struct {
	Country     string       `json:"country,omitempty"`
	Region      string       `json:"region,omitempty"`
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Device describes the scanning device as parsed from the User-Agent.
type Device struct {
	Type            string `json:"type,omitempty"` // mobile | tablet | desktop
	OperatingSystem string `json:"operating_system,omitempty"`
	Browser         string `json:"browser,omitempty"`
	ScreenWidth     int    `json:"screen_width,omitempty"` // 0 when unknown
}

// Language carries the detected language and the ordered Accept-Language
// preference list.
type Language struct {
	Detected    string   `json:"detected,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// ScanContext is everything the engine knows about one incoming scan.
type ScanContext struct {
	Timestamp    time.Time
	Timezone     string
	Location     *Location
	Device       Device
	Language     Language
	IP           string
	UserAgent    string
	Referrer     string
	SessionToken string
}

// CheckType names one step of the validity pipeline.
type CheckType string

const (
	CheckActive     CheckType = "active"
	CheckExpiration CheckType = "expiration"
	CheckScanLimit  CheckType = "scan_limit"
	CheckPassword   CheckType = "password"
	CheckSchedule   CheckType = "schedule"
)

// ValidityReason is the verdict reason code.
type ValidityReason string

const (
	ReasonValid            ValidityReason = "VALID"
	ReasonInactive         ValidityReason = "INACTIVE"
	ReasonExpired          ValidityReason = "EXPIRED"
	ReasonScanLimit        ValidityReason = "SCAN_LIMIT_EXCEEDED"
	ReasonPasswordRequired ValidityReason = "PASSWORD_REQUIRED"
	ReasonPasswordInvalid  ValidityReason = "PASSWORD_INVALID"
	ReasonOutOfWindow      ValidityReason = "SCHEDULE_OUT_OF_WINDOW"
)

// CheckResult is one step's outcome, kept for audit purposes.
type CheckResult struct {
	CheckType CheckType      `json:"check_type"`
	Valid     bool           `json:"is_valid"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// ValidityResult is the verdict of the gating pipeline. Checks contains the
// results in evaluation order up to and including the failing check.
type ValidityResult struct {
	Valid        bool               `json:"is_valid"`
	Reason       ValidityReason     `json:"reason"`
	Message      string             `json:"message"`
	Checks       []CheckResult      `json:"checks"`
	ExpiredAt    *time.Time         `json:"expired_at,omitempty"`
	CurrentScans *int               `json:"current_scans,omitempty"`
	MaxScans     *int               `json:"max_scans,omitempty"`
	Schedule     *qrmodels.Schedule `json:"schedule,omitempty"`
}

// ResolutionSource names which fallback chain source produced the content.
type ResolutionSource string

const (
	SourceABTest          ResolutionSource = "ab_test"
	SourceRedirectRule    ResolutionSource = "redirect_rule"
	SourceContentSchedule ResolutionSource = "content_schedule"
	SourceActiveVersion   ResolutionSource = "active_version"
	SourceContentRule     ResolutionSource = "content_rule"
	SourceDefault         ResolutionSource = "default"
)

// MatchedRule identifies a content rule that matched during resolution.
type MatchedRule struct {
	RuleID   id.RuleID         `json:"rule_id"`
	RuleType qrmodels.RuleType `json:"rule_type"`
	Priority int               `json:"priority"`
}

// Resolution is the final content decision for one scan.
type Resolution struct {
	Content      string               `json:"final_content"`
	ContentType  qrmodels.ContentType `json:"content_type"`
	Source       ResolutionSource     `json:"-"`
	Variant      qrmodels.Variant     `json:"-"` // set only for ab_test resolutions
	MatchedRules []MatchedRule        `json:"matched_rules"`
	FallbackUsed bool                 `json:"fallback_used"`
	DurationMS   int64                `json:"resolution_time_ms"`
}
