package models

import (
	"time"

	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// RuleType discriminates the predicate payload of a ContentRule.
type RuleType string

const (
	RuleTypeDevice   RuleType = "device"
	RuleTypeLocation RuleType = "location"
	RuleTypeLanguage RuleType = "language"
	RuleTypeTime     RuleType = "time"
)

// IsValid checks if the rule type is one of the supported enum values.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeDevice, RuleTypeLocation, RuleTypeLanguage, RuleTypeTime:
		return true
	}
	return false
}

// String returns the string representation.
func (t RuleType) String() string {
	return string(t)
}

// ScreenRange constrains device screen width in CSS pixels.
type ScreenRange struct {
	MinWidth *int `json:"min_width,omitempty"`
	MaxWidth *int `json:"max_width,omitempty"`
}

// DevicePredicate matches device attributes. Unspecified sub-fields impose
// no constraint; OS and browser match by substring.
type DevicePredicate struct {
	DeviceType      string       `json:"device_type,omitempty"` // mobile | tablet | desktop
	OperatingSystem string       `json:"operating_system,omitempty"`
	Browser         string       `json:"browser,omitempty"`
	ScreenSize      *ScreenRange `json:"screen_size,omitempty"`
}

// GeoRadius is a great-circle radius around a center point.
type GeoRadius struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// LocationPredicate matches geographic attributes. Membership lists apply
// when non-empty; the radius applies when configured.
type LocationPredicate struct {
	Countries []string   `json:"countries,omitempty"`
	Regions   []string   `json:"regions,omitempty"`
	Cities    []string   `json:"cities,omitempty"`
	Radius    *GeoRadius `json:"radius,omitempty"`
}

// LanguagePredicate matches the visitor's detected language or any of its
// ordered browser preferences, compared by primary subtag.
type LanguagePredicate struct {
	Languages []string `json:"languages"`
}

// TimePredicate matches request time against an optional date range, an
// optional minute-of-day window, and an optional day-of-week set.
type TimePredicate struct {
	StartDate  *time.Time     `json:"start_date,omitempty"`
	EndDate    *time.Time     `json:"end_date,omitempty"`
	Window     *DailyWindow   `json:"window,omitempty"`
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"`
}

// ContentRule serves alternate content when its predicate matches the scan
// context. Exactly one of the predicate fields must be set, matching Type.
// Rules are independent; the matcher picks the highest-priority match.
type ContentRule struct {
	ID          id.RuleID
	QRCodeID    id.QRCodeID
	Type        RuleType
	Device      *DevicePredicate
	Location    *LocationPredicate
	Language    *LanguagePredicate
	Time        *TimePredicate
	Content     string
	ContentType ContentType
	Priority    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate rejects rules whose predicate does not match their declared type
// or is missing required fields. Stored rules that nevertheless turn out
// malformed at evaluation time are treated as non-matching, not rejected.
func (r *ContentRule) Validate() error {
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown rule type")
	}
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "rule content is required")
	}
	if !r.ContentType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid rule content type")
	}

	switch r.Type {
	case RuleTypeDevice:
		if r.Device == nil {
			return dErrors.New(dErrors.CodeValidation, "device rule requires a device predicate")
		}
		if r.Device.DeviceType == "" && r.Device.OperatingSystem == "" &&
			r.Device.Browser == "" && r.Device.ScreenSize == nil {
			return dErrors.New(dErrors.CodeValidation, "device predicate must constrain at least one attribute")
		}
	case RuleTypeLocation:
		if r.Location == nil {
			return dErrors.New(dErrors.CodeValidation, "location rule requires a location predicate")
		}
		if len(r.Location.Countries) == 0 && len(r.Location.Regions) == 0 &&
			len(r.Location.Cities) == 0 && r.Location.Radius == nil {
			return dErrors.New(dErrors.CodeValidation, "location predicate must constrain at least one attribute")
		}
		if r.Location.Radius != nil && r.Location.Radius.RadiusKm <= 0 {
			return dErrors.New(dErrors.CodeValidation, "geo radius must be positive")
		}
	case RuleTypeLanguage:
		if r.Language == nil || len(r.Language.Languages) == 0 {
			return dErrors.New(dErrors.CodeValidation, "language rule requires a supported-language list")
		}
	case RuleTypeTime:
		if r.Time == nil {
			return dErrors.New(dErrors.CodeValidation, "time rule requires a time predicate")
		}
		if r.Time.Window != nil {
			if err := r.Time.Window.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
