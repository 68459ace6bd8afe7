package models

import (
	"time"

	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// ABTestStatus is the lifecycle state of an A/B test.
// draft → running → {paused, completed}; paused → running is allowed;
// completed is terminal.
type ABTestStatus string

const (
	ABTestDraft     ABTestStatus = "draft"
	ABTestRunning   ABTestStatus = "running"
	ABTestPaused    ABTestStatus = "paused"
	ABTestCompleted ABTestStatus = "completed"
)

// IsValid checks if the status is one of the supported enum values.
func (s ABTestStatus) IsValid() bool {
	switch s {
	case ABTestDraft, ABTestRunning, ABTestPaused, ABTestCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s ABTestStatus) CanTransitionTo(next ABTestStatus) bool {
	switch s {
	case ABTestDraft:
		return next == ABTestRunning
	case ABTestRunning:
		return next == ABTestPaused || next == ABTestCompleted
	case ABTestPaused:
		return next == ABTestRunning || next == ABTestCompleted
	case ABTestCompleted:
		return false
	}
	return false
}

// Variant identifies one arm of an A/B test.
type Variant string

const (
	VariantA Variant = "a"
	VariantB Variant = "b"
)

// ABTest splits scan traffic between two content versions.
// TrafficSplit is the percentage [0,100] of traffic assigned to variant A.
type ABTest struct {
	ID           id.ABTestID
	QRCodeID     id.QRCodeID
	VariantA     id.VersionID
	VariantB     id.VersionID
	TrafficSplit int
	Status       ABTestStatus
	Winner       *Variant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate enforces structural invariants.
func (t *ABTest) Validate() error {
	if t.VariantA.IsNil() || t.VariantB.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "both variants are required")
	}
	if t.VariantA == t.VariantB {
		return dErrors.New(dErrors.CodeValidation, "variants must reference distinct versions")
	}
	if t.TrafficSplit < 0 || t.TrafficSplit > 100 {
		return dErrors.New(dErrors.CodeValidation, "traffic split must be in [0,100]")
	}
	if !t.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid test status")
	}
	return nil
}

// RedirectCondition gates a redirect rule on context attributes. All
// configured predicates must match; an unconfigured predicate imposes no
// constraint.
type RedirectCondition struct {
	Device   *DevicePredicate   `json:"device,omitempty"`
	Location *LocationPredicate `json:"location,omitempty"`
	Language *LanguagePredicate `json:"language,omitempty"`
	Time     *TimePredicate     `json:"time,omitempty"`
}

// RedirectRule serves a target version when its condition matches. Rules are
// consulted in descending priority order; the first match wins.
type RedirectRule struct {
	ID              id.RedirectRuleID
	QRCodeID        id.QRCodeID
	TargetVersionID id.VersionID
	Condition       RedirectCondition
	Priority        int
	Enabled         bool
	CreatedAt       time.Time
}

// ContentSchedule serves a target version during an absolute window, with an
// optional repeat pattern layered on top (e.g. weekdays 9-17 within the
// window).
type ContentSchedule struct {
	ID              id.ContentScheduleID
	QRCodeID        id.QRCodeID
	TargetVersionID id.VersionID
	StartAt         *time.Time
	EndAt           *time.Time
	Repeat          *Schedule
	Active          bool
	CreatedAt       time.Time
}

// Validate enforces structural invariants.
func (c *ContentSchedule) Validate() error {
	if c.TargetVersionID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "target version is required")
	}
	if c.StartAt != nil && c.EndAt != nil && c.EndAt.Before(*c.StartAt) {
		return dErrors.New(dErrors.CodeValidation, "schedule window end precedes start")
	}
	return c.Repeat.Validate()
}
