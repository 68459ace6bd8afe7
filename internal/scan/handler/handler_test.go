package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"qrflow/internal/scan/models"
	"qrflow/internal/scan/service"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/platform/middleware/metadata"
)

// fakeResolver returns a canned outcome and captures the inputs it was
// called with.
type fakeResolver struct {
	outcome  *service.Outcome
	err      error
	shortID  string
	password string
	sctx     *models.ScanContext
}

func (f *fakeResolver) Resolve(_ context.Context, shortID, password string, sctx *models.ScanContext) (*service.Outcome, error) {
	f.shortID = shortID
	f.password = password
	f.sctx = sctx
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type ScanHandlerSuite struct {
	suite.Suite
	resolver *fakeResolver
	router   chi.Router
}

func TestScanHandlerSuite(t *testing.T) {
	suite.Run(t, new(ScanHandlerSuite))
}

func (s *ScanHandlerSuite) SetupTest() {
	s.resolver = &fakeResolver{}
	h, err := New(s.resolver, nil)
	s.Require().NoError(err)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *ScanHandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func resolvedOutcome() *service.Outcome {
	return &service.Outcome{
		Validity: &models.ValidityResult{Valid: true, Reason: models.ReasonValid},
		Resolution: &models.Resolution{
			Content:      "https://example.com/final",
			ContentType:  "url",
			Source:       models.SourceDefault,
			FallbackUsed: true,
			DurationMS:   3,
		},
	}
}

// =============================================================================
// Outcomes
// =============================================================================

func (s *ScanHandlerSuite) TestResolvedScanReturnsContent() {
	s.resolver.outcome = resolvedOutcome()

	rr := s.serve(httptest.NewRequest(http.MethodGet, "/s/abc12345", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("abc12345", s.resolver.shortID)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("https://example.com/final", body["final_content"])
	s.Equal("url", body["content_type"])
	s.Equal(true, body["fallback_used"])
	s.Contains(body, "resolution_time_ms")
}

func (s *ScanHandlerSuite) TestUnknownShortIDIs404() {
	s.resolver.err = dErrors.New(dErrors.CodeNotFound, "qr code not found")

	rr := s.serve(httptest.NewRequest(http.MethodGet, "/s/missing1", nil))
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *ScanHandlerSuite) TestPasswordRequiredIs401WithVerdictBody() {
	s.resolver.outcome = &service.Outcome{
		Validity: &models.ValidityResult{
			Valid:   false,
			Reason:  models.ReasonPasswordRequired,
			Message: "password required",
		},
	}

	rr := s.serve(httptest.NewRequest(http.MethodGet, "/s/gated123", nil))
	s.Equal(http.StatusUnauthorized, rr.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal(false, body["is_valid"])
	s.Equal(string(models.ReasonPasswordRequired), body["reason"])
}

func (s *ScanHandlerSuite) TestExpiredIs410() {
	s.resolver.outcome = &service.Outcome{
		Validity: &models.ValidityResult{Valid: false, Reason: models.ReasonExpired},
	}

	rr := s.serve(httptest.NewRequest(http.MethodGet, "/s/stale123", nil))
	s.Equal(http.StatusGone, rr.Code)
}

func (s *ScanHandlerSuite) TestRejectionStatusTable() {
	cases := map[models.ValidityReason]int{
		models.ReasonPasswordRequired: http.StatusUnauthorized,
		models.ReasonPasswordInvalid:  http.StatusUnauthorized,
		models.ReasonExpired:          http.StatusGone,
		models.ReasonScanLimit:        http.StatusGone,
		models.ReasonInactive:         http.StatusForbidden,
		models.ReasonOutOfWindow:      http.StatusForbidden,
	}
	for reason, want := range cases {
		s.Equal(want, rejectionStatus(reason), "reason %s", reason)
	}
}

// =============================================================================
// Request parsing
// =============================================================================

func (s *ScanHandlerSuite) TestPostBodyCarriesPassword() {
	s.resolver.outcome = resolvedOutcome()

	body := strings.NewReader(`{"password":"hunter2","screen_width":390}`)
	req := httptest.NewRequest(http.MethodPost, "/s/gated123", body)
	req.Header.Set("Content-Type", "application/json")
	s.serve(req)

	s.Equal("hunter2", s.resolver.password)
	s.Equal(390, s.resolver.sctx.Device.ScreenWidth)
}

func (s *ScanHandlerSuite) TestQueryParametersAreFallbacks() {
	s.resolver.outcome = resolvedOutcome()

	s.serve(httptest.NewRequest(http.MethodGet, "/s/gated123?password=hunter2&tz=Europe/Berlin", nil))
	s.Equal("hunter2", s.resolver.password)
	s.Equal("Europe/Berlin", s.resolver.sctx.Timezone)
}

func (s *ScanHandlerSuite) TestGeoHeadersPopulateLocation() {
	s.resolver.outcome = resolvedOutcome()

	req := httptest.NewRequest(http.MethodGet, "/s/abc12345", nil)
	req.Header.Set("X-Geo-Country", "DE")
	req.Header.Set("X-Geo-City", "Berlin")
	req.Header.Set("X-Geo-Latitude", "52.52")
	req.Header.Set("X-Geo-Longitude", "13.405")
	s.serve(req)

	loc := s.resolver.sctx.Location
	s.Require().NotNil(loc)
	s.Equal("DE", loc.Country)
	s.Equal("Berlin", loc.City)
	s.Require().NotNil(loc.Coordinates)
	s.InDelta(52.52, loc.Coordinates.Latitude, 0.001)
}

func (s *ScanHandlerSuite) TestNoLocationSignalsMeansNilLocation() {
	s.resolver.outcome = resolvedOutcome()

	s.serve(httptest.NewRequest(http.MethodGet, "/s/abc12345", nil))
	s.Nil(s.resolver.sctx.Location)
}

func (s *ScanHandlerSuite) TestClientCoordinatesBeatHeaders() {
	s.resolver.outcome = resolvedOutcome()

	body := strings.NewReader(`{"latitude":45.52,"longitude":-122.67}`)
	req := httptest.NewRequest(http.MethodPost, "/s/abc12345", body)
	req.Header.Set("X-Geo-Latitude", "52.52")
	req.Header.Set("X-Geo-Longitude", "13.405")
	s.serve(req)

	s.Require().NotNil(s.resolver.sctx.Location)
	s.Require().NotNil(s.resolver.sctx.Location.Coordinates)
	s.InDelta(45.52, s.resolver.sctx.Location.Coordinates.Latitude, 0.001)
}

// =============================================================================
// Session cookie
// =============================================================================

func (s *ScanHandlerSuite) TestFirstScanSetsSessionCookie() {
	s.resolver.outcome = resolvedOutcome()

	rr := s.serve(httptest.NewRequest(http.MethodGet, "/s/abc12345", nil))

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == metadata.SessionCookieName {
			cookie = c
		}
	}
	s.Require().NotNil(cookie)
	s.NotEmpty(cookie.Value)
	s.True(cookie.HttpOnly)
	s.Equal(cookie.Value, s.resolver.sctx.SessionToken)
}

func (s *ScanHandlerSuite) TestExistingSessionCookieIsKept() {
	s.resolver.outcome = resolvedOutcome()

	req := httptest.NewRequest(http.MethodGet, "/s/abc12345", nil)
	req.AddCookie(&http.Cookie{Name: metadata.SessionCookieName, Value: "visitor-1"})
	rr := s.serve(req)

	for _, c := range rr.Result().Cookies() {
		s.NotEqual(metadata.SessionCookieName, c.Name)
	}
	s.Equal("visitor-1", s.resolver.sctx.SessionToken)
}

// =============================================================================
// Parsing helpers
// =============================================================================

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		detected string
		prefs    []string
	}{
		{"empty", "", "", nil},
		{"single", "en-US", "en-US", []string{"en-US"}},
		{"weighted", "en-US,en;q=0.9,es;q=0.8", "en-US", []string{"en-US", "en", "es"}},
		{"wildcard only", "*", "", nil},
		{"wildcard mixed", "*,de;q=0.7", "de", []string{"de"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLanguage(tt.header)
			if got.Detected != tt.detected {
				t.Errorf("detected = %q, want %q", got.Detected, tt.detected)
			}
			if len(got.Preferences) != len(tt.prefs) {
				t.Fatalf("preferences = %v, want %v", got.Preferences, tt.prefs)
			}
			for i := range tt.prefs {
				if got.Preferences[i] != tt.prefs[i] {
					t.Errorf("preferences[%d] = %q, want %q", i, got.Preferences[i], tt.prefs[i])
				}
			}
		})
	}
}

func TestParseDevice(t *testing.T) {
	const (
		iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		ipadUA    = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	)

	if got := parseDevice(iphoneUA, 390); got.Type != "mobile" {
		t.Errorf("iphone type = %q, want mobile", got.Type)
	}
	if got := parseDevice(ipadUA, 0); got.Type != "tablet" {
		t.Errorf("ipad type = %q, want tablet", got.Type)
	}
	got := parseDevice(desktopUA, 1920)
	if got.Type != "desktop" {
		t.Errorf("desktop type = %q, want desktop", got.Type)
	}
	if got.Browser == "" || got.OperatingSystem == "" {
		t.Errorf("browser/os not parsed: %+v", got)
	}
	if got.ScreenWidth != 1920 {
		t.Errorf("screen width = %d, want 1920", got.ScreenWidth)
	}

	empty := parseDevice("", 0)
	if empty.Type != "" {
		t.Errorf("empty ua type = %q, want empty", empty.Type)
	}
}
