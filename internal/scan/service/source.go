package service

import (
	"context"

	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/qrcode/ports"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// StoreSource is the uncached ConfigSource, reading straight from the
// stores. The redis snapshot cache wraps it on deployments that enable
// caching.
type StoreSource struct {
	qrcodes  ports.QRCodeStore
	versions ports.VersionStore
	rules    ports.RuleStore
	delivery ports.DeliveryStore
}

// NewStoreSource constructs a store-backed ConfigSource.
func NewStoreSource(qrcodes ports.QRCodeStore, versions ports.VersionStore, rules ports.RuleStore, delivery ports.DeliveryStore) (*StoreSource, error) {
	if qrcodes == nil || versions == nil || rules == nil || delivery == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "all stores are required")
	}
	return &StoreSource{
		qrcodes:  qrcodes,
		versions: versions,
		rules:    rules,
		delivery: delivery,
	}, nil
}

func (s *StoreSource) QRCodeByShortID(ctx context.Context, shortID string) (*qrmodels.QRCode, error) {
	return s.qrcodes.FindByShortID(ctx, shortID)
}

func (s *StoreSource) RunningABTest(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ABTest, error) {
	return s.delivery.RunningABTest(ctx, qrID)
}

func (s *StoreSource) RedirectRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.RedirectRule, error) {
	return s.delivery.ListRedirectRules(ctx, qrID)
}

func (s *StoreSource) ContentSchedules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentSchedule, error) {
	return s.delivery.ListContentSchedules(ctx, qrID)
}

func (s *StoreSource) ActiveVersion(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ContentVersion, error) {
	return s.versions.ActiveVersion(ctx, qrID)
}

func (s *StoreSource) VersionByID(ctx context.Context, versionID id.VersionID) (*qrmodels.ContentVersion, error) {
	return s.versions.FindByID(ctx, versionID)
}

func (s *StoreSource) ContentRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentRule, error) {
	return s.rules.ListByQRCode(ctx, qrID)
}
