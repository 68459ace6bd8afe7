package models

import (
	"time"

	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// ContentVersion is one revision of a QR code's content. Version numbers are
// unique per QR code and assigned at creation as max(existing)+1. At most one
// version per QR code may be active at any time; activation is enforced by
// the store inside a single transaction.
type ContentVersion struct {
	ID            id.VersionID
	QRCodeID      id.QRCodeID
	VersionNumber int
	Content       string
	ContentType   ContentType
	Active        bool
	CreatedAt     time.Time
}

// Validate enforces structural invariants.
func (v *ContentVersion) Validate() error {
	if v.QRCodeID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "qr code id is required")
	}
	if v.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if !v.ContentType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid content type")
	}
	if v.VersionNumber < 1 {
		return dErrors.New(dErrors.CodeValidation, "version number must be positive")
	}
	return nil
}
