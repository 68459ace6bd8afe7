package handler

import (
	"time"

	"qrflow/internal/qrcode/models"
	dErrors "qrflow/pkg/domain-errors"
)

type createQRCodeRequest struct {
	Name               string           `json:"name"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
	MaxScans           *int             `json:"max_scans,omitempty"`
	Password           string           `json:"password,omitempty"`
	Schedule           *models.Schedule `json:"schedule,omitempty"`
	DefaultContent     string           `json:"default_content"`
	DefaultContentType string           `json:"default_content_type"`
}

func (r *createQRCodeRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.DefaultContent == "" {
		return dErrors.New(dErrors.CodeValidation, "default content is required")
	}
	if _, err := models.ParseContentType(r.DefaultContentType); err != nil {
		return err
	}
	return r.Schedule.Validate()
}

type updateQRCodeRequest struct {
	Name          *string          `json:"name,omitempty"`
	Active        *bool            `json:"active,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	MaxScans      *int             `json:"max_scans,omitempty"`
	Password      *string          `json:"password,omitempty"`
	ClearPassword bool             `json:"clear_password,omitempty"`
	Schedule      *models.Schedule `json:"schedule,omitempty"`
	ClearSchedule bool             `json:"clear_schedule,omitempty"`
}

func (r *updateQRCodeRequest) Validate() error {
	if r.Password != nil && r.ClearPassword {
		return dErrors.New(dErrors.CodeValidation, "cannot set and clear the password together")
	}
	if r.Schedule != nil && r.ClearSchedule {
		return dErrors.New(dErrors.CodeValidation, "cannot set and clear the schedule together")
	}
	return r.Schedule.Validate()
}

type createVersionRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

func (r *createVersionRequest) Validate() error {
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	_, err := models.ParseContentType(r.ContentType)
	return err
}

type createRuleRequest struct {
	Type        string                     `json:"type"`
	Device      *models.DevicePredicate    `json:"device,omitempty"`
	Location    *models.LocationPredicate  `json:"location,omitempty"`
	Language    *models.LanguagePredicate  `json:"language,omitempty"`
	Time        *models.TimePredicate      `json:"time,omitempty"`
	Content     string                     `json:"content"`
	ContentType string                     `json:"content_type"`
	Priority    int                        `json:"priority"`
	Active      bool                       `json:"active"`
}

func (r *createRuleRequest) Validate() error {
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	_, err := models.ParseContentType(r.ContentType)
	return err
}

func (r *createRuleRequest) toModel() *models.ContentRule {
	return &models.ContentRule{
		Type:        models.RuleType(r.Type),
		Device:      r.Device,
		Location:    r.Location,
		Language:    r.Language,
		Time:        r.Time,
		Content:     r.Content,
		ContentType: models.ContentType(r.ContentType),
		Priority:    r.Priority,
		Active:      r.Active,
	}
}

type createABTestRequest struct {
	VariantA     string `json:"variant_a"`
	VariantB     string `json:"variant_b"`
	TrafficSplit int    `json:"traffic_split"`
}

func (r *createABTestRequest) Validate() error {
	if r.TrafficSplit < 0 || r.TrafficSplit > 100 {
		return dErrors.New(dErrors.CodeValidation, "traffic split must be in [0,100]")
	}
	return nil
}

type transitionABTestRequest struct {
	Status string  `json:"status"`
	Winner *string `json:"winner,omitempty"`
}

func (r *transitionABTestRequest) Validate() error {
	if !models.ABTestStatus(r.Status).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid test status")
	}
	if r.Winner != nil && *r.Winner != string(models.VariantA) && *r.Winner != string(models.VariantB) {
		return dErrors.New(dErrors.CodeValidation, "winner must be 'a' or 'b'")
	}
	return nil
}

type createRedirectRuleRequest struct {
	TargetVersionID string                   `json:"target_version_id"`
	Condition       models.RedirectCondition `json:"condition"`
	Priority        int                      `json:"priority"`
	Enabled         bool                     `json:"enabled"`
}

func (r *createRedirectRuleRequest) Validate() error {
	if r.TargetVersionID == "" {
		return dErrors.New(dErrors.CodeValidation, "target version is required")
	}
	return nil
}

type createContentScheduleRequest struct {
	TargetVersionID string           `json:"target_version_id"`
	StartAt         *time.Time       `json:"start_at,omitempty"`
	EndAt           *time.Time       `json:"end_at,omitempty"`
	Repeat          *models.Schedule `json:"repeat,omitempty"`
	Active          bool             `json:"active"`
}

func (r *createContentScheduleRequest) Validate() error {
	if r.TargetVersionID == "" {
		return dErrors.New(dErrors.CodeValidation, "target version is required")
	}
	return r.Repeat.Validate()
}
