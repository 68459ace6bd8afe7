package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"qrflow/internal/scan/models"
	"qrflow/pkg/requestcontext"
)

// Geo headers populated by the CDN or edge proxy in front of the service.
const (
	headerGeoCountry = "X-Geo-Country"
	headerGeoRegion  = "X-Geo-Region"
	headerGeoCity    = "X-Geo-City"
	headerGeoLat     = "X-Geo-Latitude"
	headerGeoLon     = "X-Geo-Longitude"
)

// decodeScanRequest merges the optional JSON body with query parameters.
// Query parameters win only when the body omits the field; GET requests have
// no body at all.
func decodeScanRequest(r *http.Request) scanRequest {
	var req scanRequest
	if r.Method == http.MethodPost && r.Body != nil {
		// A malformed body is treated as absent; the scan proceeds on
		// query parameters alone.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	q := r.URL.Query()
	if req.Password == "" {
		req.Password = q.Get("password")
	}
	if req.Timezone == "" {
		req.Timezone = q.Get("tz")
	}
	if req.ScreenWidth == 0 {
		if w, err := strconv.Atoi(q.Get("screen_width")); err == nil && w > 0 {
			req.ScreenWidth = w
		}
	}
	return req
}

// buildScanContext assembles everything the engine knows about this scan
// from the request, the edge geo headers, and the client metadata already
// extracted into the context.
func buildScanContext(ctx context.Context, r *http.Request, req scanRequest) *models.ScanContext {
	rawUA := requestcontext.UserAgent(ctx)

	sessionToken := requestcontext.SessionToken(ctx)
	if sessionToken == "" {
		sessionToken = uuid.NewString()
	}

	sctx := &models.ScanContext{
		Timestamp:    requestcontext.Now(ctx),
		Timezone:     req.Timezone,
		Location:     parseLocation(r, req),
		Device:       parseDevice(rawUA, req.ScreenWidth),
		Language:     parseLanguage(r.Header.Get("Accept-Language")),
		IP:           requestcontext.ClientIP(ctx),
		UserAgent:    rawUA,
		Referrer:     r.Referer(),
		SessionToken: sessionToken,
	}
	return sctx
}

// parseDevice classifies the scanning device from the User-Agent string.
func parseDevice(rawUA string, screenWidth int) models.Device {
	if rawUA == "" {
		return models.Device{ScreenWidth: screenWidth}
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()

	deviceType := "desktop"
	switch {
	case isTablet(rawUA):
		deviceType = "tablet"
	case ua.Mobile():
		deviceType = "mobile"
	}

	return models.Device{
		Type:            deviceType,
		OperatingSystem: ua.OS(),
		Browser:         browser,
		ScreenWidth:     screenWidth,
	}
}

// isTablet covers the common tablet markers; tablets otherwise classify as
// mobile.
func isTablet(rawUA string) bool {
	lower := strings.ToLower(rawUA)
	return strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet")
}

// parseLanguage splits an Accept-Language header into an ordered preference
// list, dropping quality weights. The first entry becomes the detected
// language.
func parseLanguage(acceptLanguage string) models.Language {
	var lang models.Language
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(part)
		if idx := strings.Index(tag, ";"); idx != -1 {
			tag = strings.TrimSpace(tag[:idx])
		}
		if tag == "" || tag == "*" {
			continue
		}
		lang.Preferences = append(lang.Preferences, tag)
	}
	if len(lang.Preferences) > 0 {
		lang.Detected = lang.Preferences[0]
	}
	return lang
}

// parseLocation reads the edge geo headers, with client-supplied coordinates
// taking precedence over edge-derived ones. Returns nil when nothing at all
// is known; location rules then never match.
func parseLocation(r *http.Request, req scanRequest) *models.Location {
	loc := models.Location{
		Country: r.Header.Get(headerGeoCountry),
		Region:  r.Header.Get(headerGeoRegion),
		City:    r.Header.Get(headerGeoCity),
	}

	if req.Latitude != nil && req.Longitude != nil {
		loc.Coordinates = &models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	} else if lat, lon, ok := headerCoordinates(r); ok {
		loc.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	}

	if loc.Country == "" && loc.Region == "" && loc.City == "" && loc.Coordinates == nil {
		return nil
	}
	return &loc
}

func headerCoordinates(r *http.Request) (float64, float64, bool) {
	rawLat, rawLon := r.Header.Get(headerGeoLat), r.Header.Get(headerGeoLon)
	if rawLat == "" || rawLon == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
