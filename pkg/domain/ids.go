// Package domain holds typed identifiers and domain primitives shared across
// services and stores. Distinct ID types make cross-entity mixups a compile
// error instead of a runtime bug.
package domain

import (
	"github.com/google/uuid"

	dErrors "qrflow/pkg/domain-errors"
)

// Typed UUID identifiers for persisted entities.
type (
	AccountID         uuid.UUID
	QRCodeID          uuid.UUID
	VersionID         uuid.UUID
	RuleID            uuid.UUID
	ABTestID          uuid.UUID
	RedirectRuleID    uuid.UUID
	ContentScheduleID uuid.UUID
	ScanEventID       uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseAccountID validates and returns an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	return AccountID(u), err
}

// ParseQRCodeID validates and returns a QRCodeID.
func ParseQRCodeID(s string) (QRCodeID, error) {
	u, err := parseUUID(s)
	return QRCodeID(u), err
}

// ParseVersionID validates and returns a VersionID.
func ParseVersionID(s string) (VersionID, error) {
	u, err := parseUUID(s)
	return VersionID(u), err
}

// ParseRuleID validates and returns a RuleID.
func ParseRuleID(s string) (RuleID, error) {
	u, err := parseUUID(s)
	return RuleID(u), err
}

// ParseABTestID validates and returns an ABTestID.
func ParseABTestID(s string) (ABTestID, error) {
	u, err := parseUUID(s)
	return ABTestID(u), err
}

func (id AccountID) String() string         { return uuid.UUID(id).String() }
func (id QRCodeID) String() string          { return uuid.UUID(id).String() }
func (id VersionID) String() string         { return uuid.UUID(id).String() }
func (id RuleID) String() string            { return uuid.UUID(id).String() }
func (id ABTestID) String() string          { return uuid.UUID(id).String() }
func (id RedirectRuleID) String() string    { return uuid.UUID(id).String() }
func (id ContentScheduleID) String() string { return uuid.UUID(id).String() }
func (id ScanEventID) String() string       { return uuid.UUID(id).String() }

// Text marshaling keeps the canonical UUID string form in JSON and caches;
// defined types do not inherit uuid.UUID's encoding methods.
func (id AccountID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id QRCodeID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id VersionID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id RuleID) MarshalText() ([]byte, error)            { return []byte(id.String()), nil }
func (id ABTestID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id RedirectRuleID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ContentScheduleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ScanEventID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func unmarshalUUID(text []byte) (uuid.UUID, error) {
	return uuid.ParseBytes(text)
}

func (id *AccountID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = AccountID(u)
	return err
}

func (id *QRCodeID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = QRCodeID(u)
	return err
}

func (id *VersionID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = VersionID(u)
	return err
}

func (id *RuleID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = RuleID(u)
	return err
}

func (id *ABTestID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = ABTestID(u)
	return err
}

func (id *RedirectRuleID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = RedirectRuleID(u)
	return err
}

func (id *ContentScheduleID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = ContentScheduleID(u)
	return err
}

func (id *ScanEventID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text)
	*id = ScanEventID(u)
	return err
}

func (id AccountID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id QRCodeID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RuleID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id ABTestID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id RedirectRuleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ContentScheduleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ScanEventID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// NewAccountID mints a fresh account identifier.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewQRCodeID mints a fresh QR code identifier.
func NewQRCodeID() QRCodeID { return QRCodeID(uuid.New()) }

// NewVersionID mints a fresh content version identifier.
func NewVersionID() VersionID { return VersionID(uuid.New()) }

// NewRuleID mints a fresh content rule identifier.
func NewRuleID() RuleID { return RuleID(uuid.New()) }

// NewABTestID mints a fresh A/B test identifier.
func NewABTestID() ABTestID { return ABTestID(uuid.New()) }

// NewRedirectRuleID mints a fresh redirect rule identifier.
func NewRedirectRuleID() RedirectRuleID { return RedirectRuleID(uuid.New()) }

// NewContentScheduleID mints a fresh content schedule identifier.
func NewContentScheduleID() ContentScheduleID { return ContentScheduleID(uuid.New()) }

// NewScanEventID mints a fresh scan event identifier.
func NewScanEventID() ScanEventID { return ScanEventID(uuid.New()) }
