// Package rules evaluates content rules against a scan context and selects
// the winning rule.
package rules

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/scan/geo"
	"qrflow/internal/scan/models"
	"qrflow/internal/scan/schedule"
)

// Matcher evaluates rule predicates. It is stateless; a single instance is
// shared across scans.
type Matcher struct {
	logger *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger used to report malformed predicates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// New constructs a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Matches returns every active rule whose predicate matches the context.
// A rule whose predicate cannot be evaluated is logged and treated as
// non-matching; it never aborts evaluation of the remaining rules.
func (m *Matcher) Matches(rules []*qrmodels.ContentRule, sctx *models.ScanContext) []*qrmodels.ContentRule {
	var matched []*qrmodels.ContentRule
	for _, rule := range rules {
		if rule == nil || !rule.Active {
			continue
		}
		ok, err := m.matches(rule, sctx)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("rule predicate evaluation failed, treating as non-matching",
					"rule_id", rule.ID,
					"rule_type", rule.Type,
					"error", err,
				)
			}
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Resolve evaluates every active rule against the context and returns the
// winning rule, or nil when none match. The winner is the matching rule with
// the highest priority; among equal priorities the lowest rule ID wins, so
// selection is deterministic for a fixed rule set and identical context.
func (m *Matcher) Resolve(rules []*qrmodels.ContentRule, sctx *models.ScanContext) *qrmodels.ContentRule {
	return Best(m.Matches(rules, sctx))
}

// Best selects the winner among already-matched rules: highest priority,
// ties broken by lowest rule ID. Returns nil for an empty slice.
func Best(matched []*qrmodels.ContentRule) *qrmodels.ContentRule {
	var winner *qrmodels.ContentRule
	for _, rule := range matched {
		if winner == nil || beats(rule, winner) {
			winner = rule
		}
	}
	return winner
}

// MatchesCondition evaluates a redirect rule condition: every configured
// predicate must match, an unconfigured predicate imposes no constraint.
func (m *Matcher) MatchesCondition(cond *qrmodels.RedirectCondition, sctx *models.ScanContext) (bool, error) {
	if cond == nil {
		return true, nil
	}
	if cond.Device != nil && !matchDevice(cond.Device, sctx.Device) {
		return false, nil
	}
	if cond.Location != nil && !matchLocation(cond.Location, sctx.Location) {
		return false, nil
	}
	if cond.Language != nil && !matchLanguage(cond.Language, sctx.Language) {
		return false, nil
	}
	if cond.Time != nil {
		ok, err := matchTime(cond.Time, sctx)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// beats reports whether candidate outranks current: strictly higher priority,
// or equal priority with the smaller ID.
func beats(candidate, current *qrmodels.ContentRule) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	return uuid.UUID(candidate.ID).String() < uuid.UUID(current.ID).String()
}

func (m *Matcher) matches(rule *qrmodels.ContentRule, sctx *models.ScanContext) (bool, error) {
	switch rule.Type {
	case qrmodels.RuleTypeDevice:
		if rule.Device == nil {
			return false, fmt.Errorf("device rule %s has no device predicate", rule.ID)
		}
		return matchDevice(rule.Device, sctx.Device), nil
	case qrmodels.RuleTypeLocation:
		if rule.Location == nil {
			return false, fmt.Errorf("location rule %s has no location predicate", rule.ID)
		}
		return matchLocation(rule.Location, sctx.Location), nil
	case qrmodels.RuleTypeLanguage:
		if rule.Language == nil || len(rule.Language.Languages) == 0 {
			return false, fmt.Errorf("language rule %s has no language list", rule.ID)
		}
		return matchLanguage(rule.Language, sctx.Language), nil
	case qrmodels.RuleTypeTime:
		if rule.Time == nil {
			return false, fmt.Errorf("time rule %s has no time predicate", rule.ID)
		}
		return matchTime(rule.Time, sctx)
	default:
		return false, fmt.Errorf("rule %s has unknown type %q", rule.ID, rule.Type)
	}
}

// matchDevice requires every specified sub-field to be satisfied;
// unspecified sub-fields impose no constraint.
func matchDevice(p *qrmodels.DevicePredicate, d models.Device) bool {
	if p.DeviceType != "" && !strings.EqualFold(p.DeviceType, d.Type) {
		return false
	}
	if p.OperatingSystem != "" && !containsFold(d.OperatingSystem, p.OperatingSystem) {
		return false
	}
	if p.Browser != "" && !containsFold(d.Browser, p.Browser) {
		return false
	}
	if p.ScreenSize != nil {
		// Width 0 means the boundary could not determine screen size; a
		// specified constraint cannot be satisfied by an unknown width.
		if d.ScreenWidth == 0 {
			return false
		}
		if p.ScreenSize.MinWidth != nil && d.ScreenWidth < *p.ScreenSize.MinWidth {
			return false
		}
		if p.ScreenSize.MaxWidth != nil && d.ScreenWidth > *p.ScreenSize.MaxWidth {
			return false
		}
	}
	return true
}

// matchLocation requires a present context location; an absent location
// never matches a location rule.
func matchLocation(p *qrmodels.LocationPredicate, loc *models.Location) bool {
	if loc == nil {
		return false
	}
	if len(p.Countries) > 0 && !memberFold(p.Countries, loc.Country) {
		return false
	}
	if len(p.Regions) > 0 && !memberFold(p.Regions, loc.Region) {
		return false
	}
	if len(p.Cities) > 0 && !memberFold(p.Cities, loc.City) {
		return false
	}
	if p.Radius != nil {
		if loc.Coordinates == nil {
			return false
		}
		center := models.Coordinates{Latitude: p.Radius.Latitude, Longitude: p.Radius.Longitude}
		if geo.Distance(center, *loc.Coordinates) > p.Radius.RadiusKm {
			return false
		}
	}
	return true
}

// matchLanguage compares by primary subtag: the detected language or any of
// the ordered browser preferences must appear in the supported list.
func matchLanguage(p *qrmodels.LanguagePredicate, lang models.Language) bool {
	supported := make(map[string]struct{}, len(p.Languages))
	for _, l := range p.Languages {
		supported[primarySubtag(l)] = struct{}{}
	}
	if lang.Detected != "" {
		if _, ok := supported[primarySubtag(lang.Detected)]; ok {
			return true
		}
	}
	for _, pref := range lang.Preferences {
		if _, ok := supported[primarySubtag(pref)]; ok {
			return true
		}
	}
	return false
}

func matchTime(p *qrmodels.TimePredicate, sctx *models.ScanContext) (bool, error) {
	ts := sctx.Timestamp
	if p.StartDate != nil && ts.Before(*p.StartDate) {
		return false, nil
	}
	if p.EndDate != nil && ts.After(*p.EndDate) {
		return false, nil
	}
	within, err := schedule.WithinWindow(p.Window, ts)
	if err != nil {
		return false, err
	}
	if !within {
		return false, nil
	}
	return schedule.WithinDaySet(p.DaysOfWeek, ts), nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func memberFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func primarySubtag(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.Index(lang, "-"); idx != -1 {
		return lang[:idx]
	}
	return lang
}
