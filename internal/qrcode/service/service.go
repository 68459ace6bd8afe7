// Package service implements the management side: creating and configuring
// QR codes, versions, rules, and delivery sources. Every write is validated
// against the caller's subscription tier limits before it reaches a store.
package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"qrflow/internal/qrcode/models"
	"qrflow/internal/qrcode/ports"
	"qrflow/internal/tier"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/requestcontext"
)

const shortIDLength = 8

const shortIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Service orchestrates management writes.
type Service struct {
	qrcodes  ports.QRCodeStore
	versions ports.VersionStore
	rules    ports.RuleStore
	delivery ports.DeliveryStore
	limits   tier.Limits
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a management Service.
func New(qrcodes ports.QRCodeStore, versions ports.VersionStore, rules ports.RuleStore, delivery ports.DeliveryStore, limits tier.Limits, opts ...Option) (*Service, error) {
	if qrcodes == nil || versions == nil || rules == nil || delivery == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "all stores are required")
	}
	if limits == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tier limits are required")
	}
	s := &Service{
		qrcodes:  qrcodes,
		versions: versions,
		rules:    rules,
		delivery: delivery,
		limits:   limits,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateQRCodeInput carries the caller-controlled fields of a new QR code.
type CreateQRCodeInput struct {
	Name               string
	ExpiresAt          *time.Time
	MaxScans           *int
	Password           string
	Schedule           *models.Schedule
	DefaultContent     string
	DefaultContentType models.ContentType
}

// CreateQRCode validates the input against the account's tier and persists a
// new QR code. A tier without unlimited scans gets the tier ceiling applied
// when no explicit limit is given.
func (s *Service) CreateQRCode(ctx context.Context, accountID id.AccountID, t id.SubscriptionTier, input CreateQRCodeInput) (*models.QRCode, error) {
	limits := s.limits.ForTier(t)
	now := requestcontext.Now(ctx)

	if err := s.enforceTier(limits, now, input.ExpiresAt, input.MaxScans, input.Password, input.Schedule); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	maxScans := input.MaxScans
	if maxScans == nil && !limits.AllowUnlimitedScans {
		maxScans = limits.MaxScanLimit
	}

	shortID, err := newShortID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate short id")
	}

	qr := &models.QRCode{
		ID:                 id.NewQRCodeID(),
		AccountID:          accountID,
		ShortID:            shortID,
		Name:               input.Name,
		Active:             true,
		ExpiresAt:          input.ExpiresAt,
		MaxScans:           maxScans,
		PasswordHash:       passwordHash,
		Schedule:           input.Schedule,
		DefaultContent:     input.DefaultContent,
		DefaultContentType: input.DefaultContentType,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := qr.Validate(); err != nil {
		return nil, err
	}
	if err := s.qrcodes.Create(ctx, qr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create qr code")
	}
	return qr, nil
}

// UpdateQRCodeInput carries the mutable fields of a QR code. Nil pointer
// fields leave the current value untouched; ClearPassword removes the gate.
type UpdateQRCodeInput struct {
	Name          *string
	Active        *bool
	ExpiresAt     *time.Time
	MaxScans      *int
	Password      *string
	ClearPassword bool
	Schedule      *models.Schedule
	ClearSchedule bool
}

// UpdateQRCode applies partial updates under the same tier gates as create.
// The scan counter is owned by the resolution pipeline and is never written
// here.
func (s *Service) UpdateQRCode(ctx context.Context, accountID id.AccountID, t id.SubscriptionTier, qrID id.QRCodeID, input UpdateQRCodeInput) (*models.QRCode, error) {
	qr, err := s.owned(ctx, accountID, qrID)
	if err != nil {
		return nil, err
	}
	limits := s.limits.ForTier(t)
	now := requestcontext.Now(ctx)

	if input.Name != nil {
		qr.Name = *input.Name
	}
	if input.Active != nil {
		qr.Active = *input.Active
	}
	if input.ExpiresAt != nil {
		qr.ExpiresAt = input.ExpiresAt
	}
	if input.MaxScans != nil {
		qr.MaxScans = input.MaxScans
	}
	if input.ClearSchedule {
		qr.Schedule = nil
	} else if input.Schedule != nil {
		qr.Schedule = input.Schedule
	}

	password := ""
	if input.Password != nil {
		password = *input.Password
	}
	if err := s.enforceTier(limits, now, qr.ExpiresAt, qr.MaxScans, password, qr.Schedule); err != nil {
		return nil, err
	}

	if input.ClearPassword {
		qr.PasswordHash = ""
	} else if input.Password != nil {
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		qr.PasswordHash = hash
	}

	qr.UpdatedAt = now
	if err := qr.Validate(); err != nil {
		return nil, err
	}
	if err := s.qrcodes.Update(ctx, qr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update qr code")
	}
	return qr, nil
}

// GetQRCode returns an owned QR code.
func (s *Service) GetQRCode(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) (*models.QRCode, error) {
	return s.owned(ctx, accountID, qrID)
}

// CreateVersion appends a new content version numbered after the current
// maximum. New versions start inactive; activation is a separate step.
func (s *Service) CreateVersion(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, content string, contentType models.ContentType) (*models.ContentVersion, error) {
	if _, err := s.owned(ctx, accountID, qrID); err != nil {
		return nil, err
	}
	max, err := s.versions.MaxVersionNumber(ctx, qrID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to number version")
	}
	v := &models.ContentVersion{
		ID:            id.NewVersionID(),
		QRCodeID:      qrID,
		VersionNumber: max + 1,
		Content:       content,
		ContentType:   contentType,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.versions.Create(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create version")
	}
	return v, nil
}

// ActivateVersion makes versionID the single active version of the QR code.
// The store performs the swap atomically.
func (s *Service) ActivateVersion(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, versionID id.VersionID) error {
	if _, err := s.owned(ctx, accountID, qrID); err != nil {
		return err
	}
	if err := s.versions.Activate(ctx, qrID, versionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "version not found")
	}
	return nil
}

// ListVersions returns all versions of an owned QR code.
func (s *Service) ListVersions(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) ([]*models.ContentVersion, error) {
	if _, err := s.owned(ctx, accountID, qrID); err != nil {
		return nil, err
	}
	return s.versions.ListByQRCode(ctx, qrID)
}

// CreateRule persists a validated content rule.
func (s *Service) CreateRule(ctx context.Context, accountID id.AccountID, rule *models.ContentRule) (*models.ContentRule, error) {
	if _, err := s.owned(ctx, accountID, rule.QRCodeID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	rule.ID = id.NewRuleID()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create rule")
	}
	return rule, nil
}

// UpdateRule replaces an existing rule's definition.
func (s *Service) UpdateRule(ctx context.Context, accountID id.AccountID, rule *models.ContentRule) (*models.ContentRule, error) {
	existing, err := s.rules.FindByID(ctx, rule.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "rule not found")
	}
	if _, err := s.owned(ctx, accountID, existing.QRCodeID); err != nil {
		return nil, err
	}
	rule.QRCodeID = existing.QRCodeID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = requestcontext.Now(ctx)
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update rule")
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, accountID id.AccountID, ruleID id.RuleID) error {
	existing, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "rule not found")
	}
	if _, err := s.owned(ctx, accountID, existing.QRCodeID); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete rule")
	}
	return nil
}

// ListRules returns all rules of an owned QR code.
func (s *Service) ListRules(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) ([]*models.ContentRule, error) {
	if _, err := s.owned(ctx, accountID, qrID); err != nil {
		return nil, err
	}
	return s.rules.ListByQRCode(ctx, qrID)
}

// CreateABTest creates a draft A/B test over two versions of the QR code.
func (s *Service) CreateABTest(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, variantA, variantB id.VersionID, trafficSplit int) (*models.ABTest, error) {
	if _, err := s.owned(ctx, accountID, qrID); err != nil {
		return nil, err
	}
	for _, versionID := range []id.VersionID{variantA, variantB} {
		v, err := s.versions.FindByID(ctx, versionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "variant version not found")
		}
		if v.QRCodeID != qrID {
			return nil, dErrors.New(dErrors.CodeValidation, "variant version belongs to another qr code")
		}
	}
	now := requestcontext.Now(ctx)
	test := &models.ABTest{
		ID:           id.NewABTestID(),
		QRCodeID:     qrID,
		VariantA:     variantA,
		VariantB:     variantB,
		TrafficSplit: trafficSplit,
		Status:       models.ABTestDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := test.Validate(); err != nil {
		return nil, err
	}
	if err := s.delivery.CreateABTest(ctx, test); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create test")
	}
	return test, nil
}

// TransitionABTest moves a test through its lifecycle. An illegal transition
// is an invariant violation, not a validation error; the client referenced a
// state that no longer permits the move.
func (s *Service) TransitionABTest(ctx context.Context, accountID id.AccountID, testID id.ABTestID, next models.ABTestStatus, winner *models.Variant) (*models.ABTest, error) {
	test, err := s.delivery.FindABTest(ctx, testID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "test not found")
	}
	if _, err := s.owned(ctx, accountID, test.QRCodeID); err != nil {
		return nil, err
	}
	if !test.Status.CanTransitionTo(next) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "illegal test status transition")
	}
	if winner != nil && next != models.ABTestCompleted {
		return nil, dErrors.New(dErrors.CodeValidation, "winner may only be declared on completion")
	}
	test.Status = next
	test.Winner = winner
	test.UpdatedAt = requestcontext.Now(ctx)
	if err := s.delivery.UpdateABTest(ctx, test); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update test")
	}
	return test, nil
}

// CreateRedirectRule persists a conditional redirect to a target version.
func (s *Service) CreateRedirectRule(ctx context.Context, accountID id.AccountID, rule *models.RedirectRule) (*models.RedirectRule, error) {
	if _, err := s.owned(ctx, accountID, rule.QRCodeID); err != nil {
		return nil, err
	}
	if err := s.targetBelongsTo(ctx, rule.QRCodeID, rule.TargetVersionID); err != nil {
		return nil, err
	}
	rule.ID = id.NewRedirectRuleID()
	rule.CreatedAt = requestcontext.Now(ctx)
	if err := s.delivery.CreateRedirectRule(ctx, rule); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create redirect rule")
	}
	return rule, nil
}

// CreateContentSchedule persists a timed switch to a target version.
func (s *Service) CreateContentSchedule(ctx context.Context, accountID id.AccountID, sched *models.ContentSchedule) (*models.ContentSchedule, error) {
	if _, err := s.owned(ctx, accountID, sched.QRCodeID); err != nil {
		return nil, err
	}
	if err := s.targetBelongsTo(ctx, sched.QRCodeID, sched.TargetVersionID); err != nil {
		return nil, err
	}
	sched.ID = id.NewContentScheduleID()
	sched.CreatedAt = requestcontext.Now(ctx)
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if err := s.delivery.CreateContentSchedule(ctx, sched); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create content schedule")
	}
	return sched, nil
}

// enforceTier rejects configuration the subscription does not allow.
func (s *Service) enforceTier(limits tier.TierLimits, now time.Time, expiresAt *time.Time, maxScans *int, password string, sched *models.Schedule) error {
	if expiresAt != nil && limits.MaxExpirationDays != nil {
		horizon := now.AddDate(0, 0, *limits.MaxExpirationDays)
		if expiresAt.After(horizon) {
			return dErrors.New(dErrors.CodeForbidden, "expiration exceeds the subscription horizon")
		}
	}
	if maxScans != nil {
		if *maxScans <= 0 {
			return dErrors.New(dErrors.CodeValidation, "scan limit must be positive")
		}
		if limits.MaxScanLimit != nil && *maxScans > *limits.MaxScanLimit {
			return dErrors.New(dErrors.CodeForbidden, "scan limit exceeds the subscription ceiling")
		}
	}
	if password != "" && !limits.AllowPasswordProtection {
		return dErrors.New(dErrors.CodeForbidden, "password protection requires a higher subscription")
	}
	if sched != nil && !limits.AllowScheduling {
		return dErrors.New(dErrors.CodeForbidden, "scheduling requires a higher subscription")
	}
	return nil
}

// owned loads a QR code and verifies the caller owns it. Foreign QR codes
// surface as not found so ownership is not probeable.
func (s *Service) owned(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) (*models.QRCode, error) {
	qr, err := s.qrcodes.FindByID(ctx, qrID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "qr code not found")
	}
	if qr.AccountID != accountID {
		return nil, dErrors.New(dErrors.CodeNotFound, "qr code not found")
	}
	return qr, nil
}

func (s *Service) targetBelongsTo(ctx context.Context, qrID id.QRCodeID, versionID id.VersionID) error {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "target version not found")
	}
	if v.QRCodeID != qrID {
		return dErrors.New(dErrors.CodeValidation, "target version belongs to another qr code")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}

func newShortID() (string, error) {
	out := make([]byte, shortIDLength)
	max := big.NewInt(int64(len(shortIDAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = shortIDAlphabet[n.Int64()]
	}
	return string(out), nil
}
