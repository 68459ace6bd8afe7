// Package ports defines the store interfaces shared between the management
// service, the scan resolution service, and the store implementations.
package ports

import (
	"context"

	"qrflow/internal/qrcode/models"
	id "qrflow/pkg/domain"
)

// QRCodeStore persists scannable resources.
// FindByShortID returns sentinel.ErrNotFound (wrapped) when absent.
type QRCodeStore interface {
	Create(ctx context.Context, qr *models.QRCode) error
	Update(ctx context.Context, qr *models.QRCode) error
	FindByID(ctx context.Context, qrID id.QRCodeID) (*models.QRCode, error)
	FindByShortID(ctx context.Context, shortID string) (*models.QRCode, error)
	// IncrementScanCount atomically increments and returns the new count.
	// Implementations must use a single atomic operation, never
	// read-then-write, so concurrent scans cannot lose updates.
	IncrementScanCount(ctx context.Context, qrID id.QRCodeID) (int, error)
}

// VersionStore persists content versions and enforces the at-most-one-active
// invariant inside Activate.
type VersionStore interface {
	Create(ctx context.Context, v *models.ContentVersion) error
	FindByID(ctx context.Context, versionID id.VersionID) (*models.ContentVersion, error)
	ListByQRCode(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentVersion, error)
	// ActiveVersion returns nil when no version is active.
	ActiveVersion(ctx context.Context, qrID id.QRCodeID) (*models.ContentVersion, error)
	// Activate deactivates any currently active version of the QR code and
	// activates versionID, atomically with respect to concurrent activations.
	Activate(ctx context.Context, qrID id.QRCodeID, versionID id.VersionID) error
	// MaxVersionNumber returns 0 when the QR code has no versions.
	MaxVersionNumber(ctx context.Context, qrID id.QRCodeID) (int, error)
}

// RuleStore persists content rules.
type RuleStore interface {
	Create(ctx context.Context, r *models.ContentRule) error
	Update(ctx context.Context, r *models.ContentRule) error
	FindByID(ctx context.Context, ruleID id.RuleID) (*models.ContentRule, error)
	ListByQRCode(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentRule, error)
	Delete(ctx context.Context, ruleID id.RuleID) error
}

// DeliveryStore persists the content sources consulted ahead of the plain
// active version: A/B tests, redirect rules, and content schedules.
type DeliveryStore interface {
	CreateABTest(ctx context.Context, t *models.ABTest) error
	UpdateABTest(ctx context.Context, t *models.ABTest) error
	FindABTest(ctx context.Context, testID id.ABTestID) (*models.ABTest, error)
	// RunningABTest returns nil when the QR code has no running test.
	RunningABTest(ctx context.Context, qrID id.QRCodeID) (*models.ABTest, error)

	CreateRedirectRule(ctx context.Context, r *models.RedirectRule) error
	ListRedirectRules(ctx context.Context, qrID id.QRCodeID) ([]*models.RedirectRule, error)

	CreateContentSchedule(ctx context.Context, s *models.ContentSchedule) error
	ListContentSchedules(ctx context.Context, qrID id.QRCodeID) ([]*models.ContentSchedule, error)
}
