// Package service coordinates a single scan: the validity gate, the scan
// counter side effect, and the fallback chain that picks the content to
// serve. Each scan moves through received, validated or rejected, resolving,
// resolved; a rejected scan never increments the counter and never reaches
// the fallback chain.
package service

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"time"

	"qrflow/internal/analytics"
	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/scan/metrics"
	"qrflow/internal/scan/models"
	"qrflow/internal/scan/rules"
	"qrflow/internal/scan/schedule"
	"qrflow/internal/scan/validity"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/platform/sentinel"
	"qrflow/pkg/requestcontext"
)

// ConfigSource provides the read side of scan resolution. Implementations
// may serve from a cache; every method is a point-in-time read.
type ConfigSource interface {
	QRCodeByShortID(ctx context.Context, shortID string) (*qrmodels.QRCode, error)
	// RunningABTest returns nil when no test is running.
	RunningABTest(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ABTest, error)
	// RedirectRules returns enabled and disabled rules in descending
	// priority order.
	RedirectRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.RedirectRule, error)
	ContentSchedules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentSchedule, error)
	// ActiveVersion returns nil when no version is active.
	ActiveVersion(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ContentVersion, error)
	VersionByID(ctx context.Context, versionID id.VersionID) (*qrmodels.ContentVersion, error)
	ContentRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentRule, error)
}

// Counter owns the scan count increment. The coordinator is the only caller;
// nothing else mutates the counter.
type Counter interface {
	IncrementScanCount(ctx context.Context, qrID id.QRCodeID) (int, error)
}

// Recorder accepts analytics events without blocking.
type Recorder interface {
	Record(event analytics.ScanEvent)
}

// Outcome is the terminal state of one scan. Resolution is nil when the scan
// was rejected; Validity is always set.
type Outcome struct {
	QRCode     *qrmodels.QRCode
	Validity   *models.ValidityResult
	Resolution *models.Resolution
}

// Coordinator drives the scan state machine.
type Coordinator struct {
	source   ConfigSource
	counter  Counter
	checker  *validity.Checker
	matcher  *rules.Matcher
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithRecorder attaches an analytics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

// WithMetrics attaches scan pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New constructs a Coordinator.
func New(source ConfigSource, counter Counter, opts ...Option) (*Coordinator, error) {
	if source == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "config source is required")
	}
	if counter == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "scan counter is required")
	}
	c := &Coordinator{
		source:  source,
		counter: counter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.checker = validity.New(validity.WithLogger(c.logger))
	c.matcher = rules.New(rules.WithLogger(c.logger))
	return c, nil
}

// Resolve processes one scan end to end. A missing short ID returns a
// not-found error; a failed validity gate returns an Outcome with a nil
// Resolution and no error. Lookup failures inside the fallback chain degrade
// to the next source; the static default never fails.
func (c *Coordinator) Resolve(ctx context.Context, shortID, password string, sctx *models.ScanContext) (*Outcome, error) {
	start := time.Now()
	if sctx == nil {
		sctx = &models.ScanContext{}
	}
	at := sctx.Timestamp
	if at.IsZero() {
		at = requestcontext.Now(ctx)
		sctx.Timestamp = at
	}

	qr, err := c.source.QRCodeByShortID(ctx, shortID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "qr code not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "qr code lookup failed")
	}

	verdict, authorized := c.checker.ProcessScan(qr, password, at)
	c.metrics.IncrementScan(string(verdict.Reason))
	if !authorized {
		c.emit(qr, verdict, nil, sctx, start)
		return &Outcome{QRCode: qr, Validity: verdict}, nil
	}

	if count, err := c.counter.IncrementScanCount(ctx, qr.ID); err != nil {
		// The visitor already passed the gate; losing one count beats
		// failing the scan.
		c.logger.Error("scan count increment failed",
			"qr_code_id", qr.ID,
			"error", err,
		)
	} else {
		qr.ScanCount = count
	}

	resolution := c.resolveContent(ctx, qr, sctx)
	resolution.DurationMS = time.Since(start).Milliseconds()
	c.metrics.IncrementResolution(string(resolution.Source))
	c.metrics.ObserveResolutionLatency(time.Since(start))
	c.emit(qr, verdict, resolution, sctx, start)

	return &Outcome{QRCode: qr, Validity: verdict, Resolution: resolution}, nil
}

// resolveContent walks the fallback chain in fixed priority order. Every
// source failure degrades to the next source; the static default is the
// terminal path and cannot fail.
func (c *Coordinator) resolveContent(ctx context.Context, qr *qrmodels.QRCode, sctx *models.ScanContext) *models.Resolution {
	if res, ok := c.fromABTest(ctx, qr, sctx); ok {
		return res
	}
	if res, ok := c.fromRedirectRules(ctx, qr, sctx); ok {
		return res
	}
	if res, ok := c.fromSchedules(ctx, qr, sctx); ok {
		return res
	}
	if res, ok := c.fromActiveVersion(ctx, qr); ok {
		return res
	}
	if res, ok := c.fromContentRules(ctx, qr, sctx); ok {
		return res
	}
	return &models.Resolution{
		Content:      qr.DefaultContent,
		ContentType:  qr.DefaultContentType,
		Source:       models.SourceDefault,
		FallbackUsed: true,
	}
}

func (c *Coordinator) fromABTest(ctx context.Context, qr *qrmodels.QRCode, sctx *models.ScanContext) (*models.Resolution, bool) {
	test, err := c.source.RunningABTest(ctx, qr.ID)
	if err != nil {
		c.degrade(qr, models.SourceABTest, err)
		return nil, false
	}
	if test == nil {
		return nil, false
	}

	variant, versionID := assignVariant(test, sctx)
	version, err := c.source.VersionByID(ctx, versionID)
	if err != nil {
		c.degrade(qr, models.SourceABTest, err)
		return nil, false
	}
	return &models.Resolution{
		Content:     version.Content,
		ContentType: version.ContentType,
		Source:      models.SourceABTest,
		Variant:     variant,
	}, true
}

func (c *Coordinator) fromRedirectRules(ctx context.Context, qr *qrmodels.QRCode, sctx *models.ScanContext) (*models.Resolution, bool) {
	redirects, err := c.source.RedirectRules(ctx, qr.ID)
	if err != nil {
		c.degrade(qr, models.SourceRedirectRule, err)
		return nil, false
	}
	for _, r := range redirects {
		if r == nil || !r.Enabled {
			continue
		}
		ok, err := c.matcher.MatchesCondition(&r.Condition, sctx)
		if err != nil {
			c.logger.Warn("redirect condition evaluation failed, skipping rule",
				"qr_code_id", qr.ID,
				"redirect_rule_id", r.ID,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}
		version, err := c.source.VersionByID(ctx, r.TargetVersionID)
		if err != nil {
			c.degrade(qr, models.SourceRedirectRule, err)
			return nil, false
		}
		return &models.Resolution{
			Content:     version.Content,
			ContentType: version.ContentType,
			Source:      models.SourceRedirectRule,
		}, true
	}
	return nil, false
}

func (c *Coordinator) fromSchedules(ctx context.Context, qr *qrmodels.QRCode, sctx *models.ScanContext) (*models.Resolution, bool) {
	schedules, err := c.source.ContentSchedules(ctx, qr.ID)
	if err != nil {
		c.degrade(qr, models.SourceContentSchedule, err)
		return nil, false
	}
	at := sctx.Timestamp
	for _, s := range schedules {
		if s == nil || !s.Active {
			continue
		}
		if s.StartAt != nil && at.Before(*s.StartAt) {
			continue
		}
		if s.EndAt != nil && at.After(*s.EndAt) {
			continue
		}
		within, err := schedule.IsWithinSchedule(s.Repeat, at)
		if err != nil {
			c.logger.Warn("content schedule evaluation failed, skipping",
				"qr_code_id", qr.ID,
				"content_schedule_id", s.ID,
				"error", err,
			)
			continue
		}
		if !within {
			continue
		}
		version, err := c.source.VersionByID(ctx, s.TargetVersionID)
		if err != nil {
			c.degrade(qr, models.SourceContentSchedule, err)
			return nil, false
		}
		return &models.Resolution{
			Content:     version.Content,
			ContentType: version.ContentType,
			Source:      models.SourceContentSchedule,
		}, true
	}
	return nil, false
}

func (c *Coordinator) fromActiveVersion(ctx context.Context, qr *qrmodels.QRCode) (*models.Resolution, bool) {
	version, err := c.source.ActiveVersion(ctx, qr.ID)
	if err != nil {
		c.degrade(qr, models.SourceActiveVersion, err)
		return nil, false
	}
	if version == nil {
		return nil, false
	}
	return &models.Resolution{
		Content:     version.Content,
		ContentType: version.ContentType,
		Source:      models.SourceActiveVersion,
	}, true
}

func (c *Coordinator) fromContentRules(ctx context.Context, qr *qrmodels.QRCode, sctx *models.ScanContext) (*models.Resolution, bool) {
	contentRules, err := c.source.ContentRules(ctx, qr.ID)
	if err != nil {
		c.degrade(qr, models.SourceContentRule, err)
		return nil, false
	}
	matched := c.matcher.Matches(contentRules, sctx)
	winner := rules.Best(matched)
	if winner == nil {
		return nil, false
	}

	report := make([]models.MatchedRule, 0, len(matched))
	for _, r := range matched {
		report = append(report, models.MatchedRule{
			RuleID:   r.ID,
			RuleType: r.Type,
			Priority: r.Priority,
		})
	}
	return &models.Resolution{
		Content:      winner.Content,
		ContentType:  winner.ContentType,
		Source:       models.SourceContentRule,
		MatchedRules: report,
	}, true
}

// assignVariant hashes a stable scan identity into one of 100 buckets so a
// returning visitor keeps seeing the same arm. Buckets below the traffic
// split go to variant A.
func assignVariant(test *qrmodels.ABTest, sctx *models.ScanContext) (qrmodels.Variant, id.VersionID) {
	identity := sctx.SessionToken
	if identity == "" {
		identity = sctx.IP + "|" + sctx.UserAgent
	}
	h := fnv.New32a()
	h.Write([]byte(identity))
	if int(h.Sum32()%100) < test.TrafficSplit {
		return qrmodels.VariantA, test.VariantA
	}
	return qrmodels.VariantB, test.VariantB
}

func (c *Coordinator) degrade(qr *qrmodels.QRCode, source models.ResolutionSource, err error) {
	c.logger.Warn("content source lookup failed, degrading to next fallback",
		"qr_code_id", qr.ID,
		"source", source,
		"error", err,
	)
}

func (c *Coordinator) emit(qr *qrmodels.QRCode, verdict *models.ValidityResult, resolution *models.Resolution, sctx *models.ScanContext, start time.Time) {
	if c.recorder == nil {
		return
	}
	event := analytics.ScanEvent{
		ID:         id.NewScanEventID(),
		QRCodeID:   qr.ID,
		Timestamp:  sctx.Timestamp,
		Outcome:    string(verdict.Reason),
		DeviceType: sctx.Device.Type,
		OS:         sctx.Device.OperatingSystem,
		Browser:    sctx.Device.Browser,
		Language:   sctx.Language.Detected,
		IP:         sctx.IP,
		UserAgent:  sctx.UserAgent,
		Referrer:   sctx.Referrer,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if sctx.Location != nil {
		event.Country = sctx.Location.Country
		event.Region = sctx.Location.Region
		event.City = sctx.Location.City
	}
	if resolution != nil {
		event.Source = string(resolution.Source)
		event.Variant = string(resolution.Variant)
		for _, m := range resolution.MatchedRules {
			event.MatchedRuleIDs = append(event.MatchedRuleIDs, m.RuleID.String())
		}
	}
	c.recorder.Record(event)
}
