// Package validity runs the fixed-order gating pipeline deciding whether a
// QR code may be scanned at all. The checker is side-effect free: on a VALID
// verdict the caller performs the single scan-count increment.
package validity

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/scan/models"
	"qrflow/internal/scan/schedule"
)

// Checker evaluates the gate pipeline: active → expiration → scan limit →
// password → schedule, short-circuiting on the first failure.
type Checker struct {
	logger *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for fail-open schedule reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New constructs a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs the pipeline against qr at the given request time. The returned
// result lists per-check outcomes in evaluation order up to and including
// the failing check; later checks are not evaluated.
func (c *Checker) Check(qr *qrmodels.QRCode, password string, at time.Time) *models.ValidityResult {
	result := &models.ValidityResult{Valid: true, Reason: models.ReasonValid}

	steps := []func(*qrmodels.QRCode, string, time.Time, *models.ValidityResult) *models.CheckResult{
		c.checkActive,
		c.checkExpiration,
		c.checkScanLimit,
		c.checkPassword,
		c.checkSchedule,
	}

	for _, step := range steps {
		check := step(qr, password, at, result)
		result.Checks = append(result.Checks, *check)
		if !check.Valid {
			result.Valid = false
			return result
		}
	}

	result.Message = "qr code is valid"
	return result
}

// ProcessScan wraps Check. On a VALID verdict the second return value is
// true: an authorization for the caller to increment the scan counter by
// exactly one.
func (c *Checker) ProcessScan(qr *qrmodels.QRCode, password string, at time.Time) (*models.ValidityResult, bool) {
	result := c.Check(qr, password, at)
	return result, result.Valid
}

func (c *Checker) checkActive(qr *qrmodels.QRCode, _ string, _ time.Time, result *models.ValidityResult) *models.CheckResult {
	if !qr.Active {
		result.Reason = models.ReasonInactive
		result.Message = "qr code is deactivated"
		return failed(models.CheckActive, "qr code is not active")
	}
	return passed(models.CheckActive, "qr code is active")
}

func (c *Checker) checkExpiration(qr *qrmodels.QRCode, _ string, at time.Time, result *models.ValidityResult) *models.CheckResult {
	if qr.ExpiresAt == nil {
		return passed(models.CheckExpiration, "no expiration configured")
	}
	if at.After(*qr.ExpiresAt) {
		result.Reason = models.ReasonExpired
		result.Message = "qr code has expired"
		result.ExpiredAt = qr.ExpiresAt
		check := failed(models.CheckExpiration, "qr code expired")
		check.Details = map[string]any{"expired_at": qr.ExpiresAt.Format(time.RFC3339)}
		return check
	}
	return passed(models.CheckExpiration, "qr code has not expired")
}

func (c *Checker) checkScanLimit(qr *qrmodels.QRCode, _ string, _ time.Time, result *models.ValidityResult) *models.CheckResult {
	if qr.MaxScans == nil {
		return passed(models.CheckScanLimit, "no scan limit configured")
	}
	current, limit := qr.ScanCount, *qr.MaxScans
	if current >= limit {
		result.Reason = models.ReasonScanLimit
		result.Message = "scan limit reached"
		result.CurrentScans = &current
		result.MaxScans = &limit
		check := failed(models.CheckScanLimit, "scan limit exceeded")
		check.Details = map[string]any{"current_scans": current, "max_scans": limit}
		return check
	}
	return passed(models.CheckScanLimit, fmt.Sprintf("%d of %d scans used", current, limit))
}

func (c *Checker) checkPassword(qr *qrmodels.QRCode, password string, _ time.Time, result *models.ValidityResult) *models.CheckResult {
	if qr.PasswordHash == "" {
		return passed(models.CheckPassword, "no password configured")
	}
	if password == "" {
		result.Reason = models.ReasonPasswordRequired
		result.Message = "this qr code is password protected"
		return failed(models.CheckPassword, "password required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(qr.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && c.logger != nil {
			c.logger.Warn("password hash comparison failed",
				"qr_code_id", qr.ID,
				"error", err,
			)
		}
		result.Reason = models.ReasonPasswordInvalid
		result.Message = "incorrect password"
		return failed(models.CheckPassword, "password mismatch")
	}
	return passed(models.CheckPassword, "password accepted")
}

func (c *Checker) checkSchedule(qr *qrmodels.QRCode, _ string, at time.Time, result *models.ValidityResult) *models.CheckResult {
	if qr.Schedule == nil {
		return passed(models.CheckSchedule, "no schedule configured")
	}
	within, err := schedule.IsWithinSchedule(qr.Schedule, at)
	if err != nil {
		// A malformed schedule is an authoring bug, not a security control.
		// Fail open rather than blocking legitimate traffic.
		if c.logger != nil {
			c.logger.Warn("schedule evaluation failed, failing open",
				"qr_code_id", qr.ID,
				"error", err,
			)
		}
		return passed(models.CheckSchedule, "schedule unreadable, treated as open")
	}
	if !within {
		result.Reason = models.ReasonOutOfWindow
		result.Message = "qr code is outside its scheduled window"
		result.Schedule = qr.Schedule
		return failed(models.CheckSchedule, "outside scheduled window")
	}
	return passed(models.CheckSchedule, "within scheduled window")
}

func passed(t models.CheckType, msg string) *models.CheckResult {
	return &models.CheckResult{CheckType: t, Valid: true, Message: msg}
}

func failed(t models.CheckType, msg string) *models.CheckResult {
	return &models.CheckResult{CheckType: t, Valid: false, Message: msg}
}
