package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"qrflow/internal/analytics"
	qrmodels "qrflow/internal/qrcode/models"
	deliverystore "qrflow/internal/qrcode/store/delivery"
	qrstore "qrflow/internal/qrcode/store/qrcode"
	rulestore "qrflow/internal/qrcode/store/rule"
	versionstore "qrflow/internal/qrcode/store/version"
	"qrflow/internal/scan/models"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// captureRecorder collects emitted analytics events for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []analytics.ScanEvent
}

func (r *captureRecorder) Record(event analytics.ScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *captureRecorder) last() (analytics.ScanEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return analytics.ScanEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

// failingSource errors on every delivery lookup so degradation paths can be
// exercised; the QR record itself still resolves.
type failingSource struct {
	inner ConfigSource
}

func (f *failingSource) QRCodeByShortID(ctx context.Context, shortID string) (*qrmodels.QRCode, error) {
	return f.inner.QRCodeByShortID(ctx, shortID)
}

func (f *failingSource) RunningABTest(context.Context, id.QRCodeID) (*qrmodels.ABTest, error) {
	return nil, errors.New("abtest lookup down")
}

func (f *failingSource) RedirectRules(context.Context, id.QRCodeID) ([]*qrmodels.RedirectRule, error) {
	return nil, errors.New("redirect lookup down")
}

func (f *failingSource) ContentSchedules(context.Context, id.QRCodeID) ([]*qrmodels.ContentSchedule, error) {
	return nil, errors.New("schedule lookup down")
}

func (f *failingSource) ActiveVersion(context.Context, id.QRCodeID) (*qrmodels.ContentVersion, error) {
	return nil, errors.New("version lookup down")
}

func (f *failingSource) VersionByID(context.Context, id.VersionID) (*qrmodels.ContentVersion, error) {
	return nil, errors.New("version lookup down")
}

func (f *failingSource) ContentRules(context.Context, id.QRCodeID) ([]*qrmodels.ContentRule, error) {
	return nil, errors.New("rule lookup down")
}

type CoordinatorSuite struct {
	suite.Suite
	ctx      context.Context
	qrcodes  *qrstore.InMemoryStore
	versions *versionstore.InMemoryStore
	rules    *rulestore.InMemoryStore
	delivery *deliverystore.InMemoryStore
	source   *StoreSource
	recorder *captureRecorder
	coord    *Coordinator
	qr       *qrmodels.QRCode
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.qrcodes = qrstore.NewMemory()
	s.versions = versionstore.NewMemory()
	s.rules = rulestore.NewMemory()
	s.delivery = deliverystore.NewMemory()

	var err error
	s.source, err = NewStoreSource(s.qrcodes, s.versions, s.rules, s.delivery)
	s.Require().NoError(err)

	s.recorder = &captureRecorder{}
	s.coord, err = New(s.source, s.qrcodes, WithRecorder(s.recorder))
	s.Require().NoError(err)

	s.qr = &qrmodels.QRCode{
		ID:                 id.NewQRCodeID(),
		AccountID:          id.AccountID{},
		ShortID:            "short123",
		Name:               "landing",
		Active:             true,
		DefaultContent:     "https://example.com/default",
		DefaultContentType: qrmodels.ContentTypeURL,
	}
	s.Require().NoError(s.qrcodes.Create(s.ctx, s.qr))
}

func (s *CoordinatorSuite) scanContext() *models.ScanContext {
	return &models.ScanContext{
		Timestamp:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Device:       models.Device{Type: "mobile", OperatingSystem: "iOS", Browser: "Safari"},
		Location:     &models.Location{Country: "US"},
		Language:     models.Language{Detected: "en-US", Preferences: []string{"en-US"}},
		IP:           "203.0.113.7",
		UserAgent:    "test-agent",
		SessionToken: "visitor-1",
	}
}

func (s *CoordinatorSuite) addVersion(content string, active bool) *qrmodels.ContentVersion {
	v := &qrmodels.ContentVersion{
		ID:            id.NewVersionID(),
		QRCodeID:      s.qr.ID,
		VersionNumber: 1,
		Content:       content,
		ContentType:   qrmodels.ContentTypeURL,
	}
	s.Require().NoError(s.versions.Create(s.ctx, v))
	if active {
		s.Require().NoError(s.versions.Activate(s.ctx, s.qr.ID, v.ID))
	}
	return v
}

// =============================================================================
// Lookup and gating
// =============================================================================

func (s *CoordinatorSuite) TestUnknownShortIDIsNotFound() {
	_, err := s.coord.Resolve(s.ctx, "missing", "", s.scanContext())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CoordinatorSuite) TestRejectedScanDoesNotIncrement() {
	s.qr.Active = false
	s.Require().NoError(s.qrcodes.Update(s.ctx, s.qr))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Nil(outcome.Resolution)
	s.False(outcome.Validity.Valid)
	s.Equal(models.ReasonInactive, outcome.Validity.Reason)

	stored, err := s.qrcodes.FindByID(s.ctx, s.qr.ID)
	s.Require().NoError(err)
	s.Zero(stored.ScanCount)

	event, ok := s.recorder.last()
	s.Require().True(ok)
	s.Equal(string(models.ReasonInactive), event.Outcome)
	s.Empty(event.Source)
}

func (s *CoordinatorSuite) TestValidScanIncrementsOnce() {
	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Require().NotNil(outcome.Resolution)

	stored, err := s.qrcodes.FindByID(s.ctx, s.qr.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.ScanCount)
}

func (s *CoordinatorSuite) TestConcurrentScansLoseNoIncrements() {
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
			s.NoError(err)
		}()
	}
	wg.Wait()

	stored, err := s.qrcodes.FindByID(s.ctx, s.qr.ID)
	s.Require().NoError(err)
	s.Equal(n, stored.ScanCount)
}

func (s *CoordinatorSuite) TestScanLimitBoundary() {
	limit := 100
	s.qr.MaxScans = &limit
	s.Require().NoError(s.qrcodes.Update(s.ctx, s.qr))
	for i := 0; i < 99; i++ {
		_, err := s.qrcodes.IncrementScanCount(s.ctx, s.qr.ID)
		s.Require().NoError(err)
	}

	// 99 of 100 used: the scan passes and drives the count to the limit.
	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Require().NotNil(outcome.Resolution)

	stored, err := s.qrcodes.FindByID(s.ctx, s.qr.ID)
	s.Require().NoError(err)
	s.Equal(100, stored.ScanCount)

	// At the limit: rejected, count unchanged.
	outcome, err = s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Nil(outcome.Resolution)
	s.Equal(models.ReasonScanLimit, outcome.Validity.Reason)

	stored, err = s.qrcodes.FindByID(s.ctx, s.qr.ID)
	s.Require().NoError(err)
	s.Equal(100, stored.ScanCount)
}

// =============================================================================
// Fallback chain
// =============================================================================

func (s *CoordinatorSuite) TestDefaultIsTerminalFallback() {
	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Require().NotNil(outcome.Resolution)
	s.Equal(s.qr.DefaultContent, outcome.Resolution.Content)
	s.Equal(models.SourceDefault, outcome.Resolution.Source)
	s.True(outcome.Resolution.FallbackUsed)
}

func (s *CoordinatorSuite) TestActiveVersionBeatsRulesAndDefault() {
	s.addVersion("https://example.com/v1", true)
	rule := &qrmodels.ContentRule{
		ID:          id.NewRuleID(),
		QRCodeID:    s.qr.ID,
		Type:        qrmodels.RuleTypeDevice,
		Device:      &qrmodels.DevicePredicate{DeviceType: "mobile"},
		Content:     "https://example.com/mobile",
		ContentType: qrmodels.ContentTypeURL,
		Priority:    10,
		Active:      true,
	}
	s.Require().NoError(s.rules.Create(s.ctx, rule))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(models.SourceActiveVersion, outcome.Resolution.Source)
	s.Equal("https://example.com/v1", outcome.Resolution.Content)
	s.False(outcome.Resolution.FallbackUsed)
}

func (s *CoordinatorSuite) TestABTestBeatsActiveVersion() {
	s.addVersion("https://example.com/active", true)
	va := s.addVersion("https://example.com/a", false)
	vb := s.addVersion("https://example.com/b", false)

	test := &qrmodels.ABTest{
		ID:           id.NewABTestID(),
		QRCodeID:     s.qr.ID,
		VariantA:     va.ID,
		VariantB:     vb.ID,
		TrafficSplit: 100,
		Status:       qrmodels.ABTestRunning,
	}
	s.Require().NoError(s.delivery.CreateABTest(s.ctx, test))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(models.SourceABTest, outcome.Resolution.Source)
	s.Equal(qrmodels.VariantA, outcome.Resolution.Variant)
	s.Equal("https://example.com/a", outcome.Resolution.Content)
}

func (s *CoordinatorSuite) TestVariantAssignmentIsStablePerSession() {
	va := s.addVersion("https://example.com/a", false)
	vb := s.addVersion("https://example.com/b", false)
	test := &qrmodels.ABTest{
		ID:           id.NewABTestID(),
		QRCodeID:     s.qr.ID,
		VariantA:     va.ID,
		VariantB:     vb.ID,
		TrafficSplit: 50,
		Status:       qrmodels.ABTestRunning,
	}
	s.Require().NoError(s.delivery.CreateABTest(s.ctx, test))

	sctx := s.scanContext()
	first, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", sctx)
	s.Require().NoError(err)
	for i := 0; i < 5; i++ {
		again, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
		s.Require().NoError(err)
		s.Equal(first.Resolution.Variant, again.Resolution.Variant)
	}
}

func (s *CoordinatorSuite) TestZeroSplitAlwaysServesVariantB() {
	va := s.addVersion("https://example.com/a", false)
	vb := s.addVersion("https://example.com/b", false)
	test := &qrmodels.ABTest{
		ID:           id.NewABTestID(),
		QRCodeID:     s.qr.ID,
		VariantA:     va.ID,
		VariantB:     vb.ID,
		TrafficSplit: 0,
		Status:       qrmodels.ABTestRunning,
	}
	s.Require().NoError(s.delivery.CreateABTest(s.ctx, test))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(qrmodels.VariantB, outcome.Resolution.Variant)
	s.Equal("https://example.com/b", outcome.Resolution.Content)
}

func (s *CoordinatorSuite) TestRedirectRuleBeatsScheduleAndVersion() {
	s.addVersion("https://example.com/active", true)
	target := s.addVersion("https://example.com/mobile-landing", false)

	disabled := &qrmodels.RedirectRule{
		ID:              id.NewRedirectRuleID(),
		QRCodeID:        s.qr.ID,
		TargetVersionID: target.ID,
		Priority:        99,
		Enabled:         false,
	}
	enabled := &qrmodels.RedirectRule{
		ID:              id.NewRedirectRuleID(),
		QRCodeID:        s.qr.ID,
		TargetVersionID: target.ID,
		Condition: qrmodels.RedirectCondition{
			Device: &qrmodels.DevicePredicate{DeviceType: "mobile"},
		},
		Priority: 10,
		Enabled:  true,
	}
	s.Require().NoError(s.delivery.CreateRedirectRule(s.ctx, disabled))
	s.Require().NoError(s.delivery.CreateRedirectRule(s.ctx, enabled))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(models.SourceRedirectRule, outcome.Resolution.Source)
	s.Equal("https://example.com/mobile-landing", outcome.Resolution.Content)
}

func (s *CoordinatorSuite) TestContentScheduleServesDuringWindow() {
	target := s.addVersion("https://example.com/happy-hour", false)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	sched := &qrmodels.ContentSchedule{
		ID:              id.NewContentScheduleID(),
		QRCodeID:        s.qr.ID,
		TargetVersionID: target.ID,
		StartAt:         &start,
		EndAt:           &end,
		Active:          true,
	}
	s.Require().NoError(s.delivery.CreateContentSchedule(s.ctx, sched))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(models.SourceContentSchedule, outcome.Resolution.Source)

	// Outside the window the schedule is skipped.
	late := s.scanContext()
	late.Timestamp = end.AddDate(0, 1, 0)
	outcome, err = s.coord.Resolve(s.ctx, s.qr.ShortID, "", late)
	s.Require().NoError(err)
	s.Equal(models.SourceDefault, outcome.Resolution.Source)
}

func (s *CoordinatorSuite) TestContentRulesReportAllMatches() {
	device := &qrmodels.ContentRule{
		ID:          id.NewRuleID(),
		QRCodeID:    s.qr.ID,
		Type:        qrmodels.RuleTypeDevice,
		Device:      &qrmodels.DevicePredicate{DeviceType: "mobile"},
		Content:     "https://example.com/mobile",
		ContentType: qrmodels.ContentTypeURL,
		Priority:    10,
		Active:      true,
	}
	location := &qrmodels.ContentRule{
		ID:          id.NewRuleID(),
		QRCodeID:    s.qr.ID,
		Type:        qrmodels.RuleTypeLocation,
		Location:    &qrmodels.LocationPredicate{Countries: []string{"US"}},
		Content:     "https://example.com/us",
		ContentType: qrmodels.ContentTypeURL,
		Priority:    20,
		Active:      true,
	}
	s.Require().NoError(s.rules.Create(s.ctx, device))
	s.Require().NoError(s.rules.Create(s.ctx, location))

	outcome, err := s.coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Equal(models.SourceContentRule, outcome.Resolution.Source)
	s.Equal("https://example.com/us", outcome.Resolution.Content)
	s.Len(outcome.Resolution.MatchedRules, 2)

	event, ok := s.recorder.last()
	s.Require().True(ok)
	s.Len(event.MatchedRuleIDs, 2)
	s.Equal(string(models.SourceContentRule), event.Source)
}

// =============================================================================
// Degradation
// =============================================================================

func (s *CoordinatorSuite) TestAllSourcesDownDegradesToDefault() {
	coord, err := New(&failingSource{inner: s.source}, s.qrcodes, WithRecorder(s.recorder))
	s.Require().NoError(err)

	outcome, err := coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.Require().NotNil(outcome.Resolution)
	s.Equal(models.SourceDefault, outcome.Resolution.Source)
	s.True(outcome.Resolution.FallbackUsed)
}

func (s *CoordinatorSuite) TestIncrementFailureDoesNotFailTheScan() {
	coord, err := New(s.source, failingCounter{}, WithRecorder(s.recorder))
	s.Require().NoError(err)

	outcome, err := coord.Resolve(s.ctx, s.qr.ShortID, "", s.scanContext())
	s.Require().NoError(err)
	s.NotNil(outcome.Resolution)
}

type failingCounter struct{}

func (failingCounter) IncrementScanCount(context.Context, id.QRCodeID) (int, error) {
	return 0, errors.New("counter down")
}
