package models

import (
	"time"

	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// ContentType classifies what a resolved content payload represents.
type ContentType string

const (
	ContentTypeURL         ContentType = "url"
	ContentTypeText        ContentType = "text"
	ContentTypeLandingPage ContentType = "landing_page"
)

// IsValid checks if the content type is one of the supported enum values.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeURL, ContentTypeText, ContentTypeLandingPage:
		return true
	}
	return false
}

// ParseContentType creates a ContentType from a string, validating it.
func ParseContentType(s string) (ContentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "content type cannot be empty")
	}
	c := ContentType(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid content type: must be 'url', 'text' or 'landing_page'")
	}
	return c, nil
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// DailyWindow is an inclusive time-of-day window compared using
// minutes-since-midnight in the request's local representation.
type DailyWindow struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`
}

// StartMinutes returns the window start as minutes since midnight.
func (w DailyWindow) StartMinutes() int { return w.StartHour*60 + w.StartMinute }

// EndMinutes returns the window end as minutes since midnight.
func (w DailyWindow) EndMinutes() int { return w.EndHour*60 + w.EndMinute }

// Validate rejects out-of-range window bounds.
func (w DailyWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return dErrors.New(dErrors.CodeValidation, "window hour must be in [0,23]")
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return dErrors.New(dErrors.CodeValidation, "window minute must be in [0,59]")
	}
	return nil
}

// Schedule constrains when a QR code may be scanned. All configured
// constraints must hold; an unconfigured constraint imposes no restriction.
type Schedule struct {
	Daily      *DailyWindow   `json:"daily,omitempty"`
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"` // 0=Sunday..6=Saturday
	StartDate  *time.Time     `json:"start_date,omitempty"`
	EndDate    *time.Time     `json:"end_date,omitempty"`
}

// Validate rejects schedules that could never be evaluated.
func (s *Schedule) Validate() error {
	if s == nil {
		return nil
	}
	if s.Daily != nil {
		if err := s.Daily.Validate(); err != nil {
			return err
		}
	}
	for _, d := range s.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return dErrors.New(dErrors.CodeValidation, "day of week must be in [0,6]")
		}
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "schedule end date precedes start date")
	}
	return nil
}

// QRCode is the scannable resource. ScanCount only increases, and only as a
// result of a successful validity verdict; the increment is owned by the scan
// resolution service and never mutated elsewhere.
type QRCode struct {
	ID                 id.QRCodeID
	AccountID          id.AccountID
	ShortID            string // public identifier embedded in the printed code
	Name               string
	Active             bool
	ExpiresAt          *time.Time
	MaxScans           *int
	ScanCount          int
	PasswordHash       string // bcrypt hash; empty means no password gate
	Schedule           *Schedule
	DefaultContent     string // terminal fallback, always present
	DefaultContentType ContentType
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate enforces structural invariants independent of tier limits.
func (q *QRCode) Validate() error {
	if q.ShortID == "" {
		return dErrors.New(dErrors.CodeValidation, "short id is required")
	}
	if q.DefaultContent == "" {
		return dErrors.New(dErrors.CodeValidation, "default content is required")
	}
	if !q.DefaultContentType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid default content type")
	}
	if q.MaxScans != nil && *q.MaxScans <= 0 {
		return dErrors.New(dErrors.CodeValidation, "max scans must be positive")
	}
	if err := q.Schedule.Validate(); err != nil {
		return err
	}
	return nil
}
