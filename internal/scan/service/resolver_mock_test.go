package service

//go:generate mockgen -source=resolver.go -destination=mocks/mocks.go -package=mocks ConfigSource,Counter,Recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"qrflow/internal/analytics"
	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/scan/models"
	"qrflow/internal/scan/service/mocks"
	id "qrflow/pkg/domain"
)

func mockQRCode() *qrmodels.QRCode {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return &qrmodels.QRCode{
		ID:                 id.NewQRCodeID(),
		AccountID:          id.NewAccountID(),
		ShortID:            "mock-qr",
		Name:               "Mock QR",
		Active:             true,
		DefaultContent:     "https://example.com/default",
		DefaultContentType: qrmodels.ContentTypeURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func mockScanContext() *models.ScanContext {
	return &models.ScanContext{
		Timestamp:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		SessionToken: "visitor-1",
	}
}

// TestActiveVersionShortCircuitsRuleLookup verifies the fallback chain stops
// at the first source that yields content: once the active version resolves,
// content rules are never consulted.
func TestActiveVersionShortCircuitsRuleLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	qr := mockQRCode()
	version := &qrmodels.ContentVersion{
		ID:            id.NewVersionID(),
		QRCodeID:      qr.ID,
		VersionNumber: 1,
		Content:       "https://example.com/v1",
		ContentType:   qrmodels.ContentTypeURL,
		Active:        true,
	}

	source := mocks.NewMockConfigSource(ctrl)
	source.EXPECT().QRCodeByShortID(gomock.Any(), qr.ShortID).Return(qr, nil)
	source.EXPECT().RunningABTest(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().RedirectRules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ContentSchedules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ActiveVersion(gomock.Any(), qr.ID).Return(version, nil)
	source.EXPECT().ContentRules(gomock.Any(), gomock.Any()).Times(0)

	counter := mocks.NewMockCounter(ctrl)
	counter.EXPECT().IncrementScanCount(gomock.Any(), qr.ID).Return(1, nil)

	coordinator, err := New(source, counter)
	require.NoError(t, err)

	outcome, err := coordinator.Resolve(context.Background(), qr.ShortID, "", mockScanContext())
	require.NoError(t, err)
	require.NotNil(t, outcome.Resolution)
	assert.Equal(t, models.SourceActiveVersion, outcome.Resolution.Source)
	assert.Equal(t, version.Content, outcome.Resolution.Content)
}

// TestRejectedScanSkipsCounterAndChain verifies a failed validity gate stops
// the pipeline: no increment and no content lookups.
func TestRejectedScanSkipsCounterAndChain(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	qr := mockQRCode()
	qr.Active = false

	source := mocks.NewMockConfigSource(ctrl)
	source.EXPECT().QRCodeByShortID(gomock.Any(), qr.ShortID).Return(qr, nil)

	counter := mocks.NewMockCounter(ctrl)

	coordinator, err := New(source, counter)
	require.NoError(t, err)

	outcome, err := coordinator.Resolve(context.Background(), qr.ShortID, "", mockScanContext())
	require.NoError(t, err)
	assert.Nil(t, outcome.Resolution)
	require.NotNil(t, outcome.Validity)
	assert.False(t, outcome.Validity.Valid)
	assert.Equal(t, models.ReasonInactive, outcome.Validity.Reason)
}

// TestCounterIncrementedOncePerValidScan pins the increment to exactly one
// call even when the whole chain degrades to the default.
func TestCounterIncrementedOncePerValidScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	qr := mockQRCode()

	source := mocks.NewMockConfigSource(ctrl)
	source.EXPECT().QRCodeByShortID(gomock.Any(), qr.ShortID).Return(qr, nil)
	source.EXPECT().RunningABTest(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().RedirectRules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ContentSchedules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ActiveVersion(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ContentRules(gomock.Any(), qr.ID).Return(nil, nil)

	counter := mocks.NewMockCounter(ctrl)
	counter.EXPECT().IncrementScanCount(gomock.Any(), qr.ID).Return(1, nil).Times(1)

	coordinator, err := New(source, counter)
	require.NoError(t, err)

	outcome, err := coordinator.Resolve(context.Background(), qr.ShortID, "", mockScanContext())
	require.NoError(t, err)
	require.NotNil(t, outcome.Resolution)
	assert.Equal(t, models.SourceDefault, outcome.Resolution.Source)
	assert.True(t, outcome.Resolution.FallbackUsed)
	assert.Equal(t, 1, outcome.QRCode.ScanCount)
}

// TestRecorderReceivesResolvedEvent verifies the analytics event carries the
// verdict and winning source.
func TestRecorderReceivesResolvedEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	qr := mockQRCode()

	source := mocks.NewMockConfigSource(ctrl)
	source.EXPECT().QRCodeByShortID(gomock.Any(), qr.ShortID).Return(qr, nil)
	source.EXPECT().RunningABTest(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().RedirectRules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ContentSchedules(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ActiveVersion(gomock.Any(), qr.ID).Return(nil, nil)
	source.EXPECT().ContentRules(gomock.Any(), qr.ID).Return(nil, nil)

	counter := mocks.NewMockCounter(ctrl)
	counter.EXPECT().IncrementScanCount(gomock.Any(), qr.ID).Return(1, nil)

	var captured analytics.ScanEvent
	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().Record(gomock.Any()).Do(func(event analytics.ScanEvent) {
		captured = event
	}).Times(1)

	coordinator, err := New(source, counter, WithRecorder(recorder))
	require.NoError(t, err)

	_, err = coordinator.Resolve(context.Background(), qr.ShortID, "", mockScanContext())
	require.NoError(t, err)

	assert.Equal(t, qr.ID, captured.QRCodeID)
	assert.Equal(t, string(models.ReasonValid), captured.Outcome)
	assert.Equal(t, string(models.SourceDefault), captured.Source)
}
