package handler

import (
	"time"

	"qrflow/internal/qrcode/models"
)

type qrCodeResponse struct {
	ID                 string           `json:"id"`
	ShortID            string           `json:"short_id"`
	Name               string           `json:"name"`
	Active             bool             `json:"active"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
	MaxScans           *int             `json:"max_scans,omitempty"`
	ScanCount          int              `json:"scan_count"`
	PasswordProtected  bool             `json:"password_protected"`
	Schedule           *models.Schedule `json:"schedule,omitempty"`
	DefaultContent     string           `json:"default_content"`
	DefaultContentType string           `json:"default_content_type"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func toQRCodeResponse(qr *models.QRCode) qrCodeResponse {
	return qrCodeResponse{
		ID:                 qr.ID.String(),
		ShortID:            qr.ShortID,
		Name:               qr.Name,
		Active:             qr.Active,
		ExpiresAt:          qr.ExpiresAt,
		MaxScans:           qr.MaxScans,
		ScanCount:          qr.ScanCount,
		PasswordProtected:  qr.PasswordHash != "",
		Schedule:           qr.Schedule,
		DefaultContent:     qr.DefaultContent,
		DefaultContentType: string(qr.DefaultContentType),
		CreatedAt:          qr.CreatedAt,
		UpdatedAt:          qr.UpdatedAt,
	}
}

type versionResponse struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	ContentType   string    `json:"content_type"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toVersionResponse(v *models.ContentVersion) versionResponse {
	return versionResponse{
		ID:            v.ID.String(),
		VersionNumber: v.VersionNumber,
		Content:       v.Content,
		ContentType:   string(v.ContentType),
		Active:        v.Active,
		CreatedAt:     v.CreatedAt,
	}
}

type ruleResponse struct {
	ID          string                    `json:"id"`
	Type        string                    `json:"type"`
	Device      *models.DevicePredicate   `json:"device,omitempty"`
	Location    *models.LocationPredicate `json:"location,omitempty"`
	Language    *models.LanguagePredicate `json:"language,omitempty"`
	Time        *models.TimePredicate     `json:"time,omitempty"`
	Content     string                    `json:"content"`
	ContentType string                    `json:"content_type"`
	Priority    int                       `json:"priority"`
	Active      bool                      `json:"active"`
}

func toRuleResponse(r *models.ContentRule) ruleResponse {
	return ruleResponse{
		ID:          r.ID.String(),
		Type:        string(r.Type),
		Device:      r.Device,
		Location:    r.Location,
		Language:    r.Language,
		Time:        r.Time,
		Content:     r.Content,
		ContentType: string(r.ContentType),
		Priority:    r.Priority,
		Active:      r.Active,
	}
}

type abTestResponse struct {
	ID           string  `json:"id"`
	VariantA     string  `json:"variant_a"`
	VariantB     string  `json:"variant_b"`
	TrafficSplit int     `json:"traffic_split"`
	Status       string  `json:"status"`
	Winner       *string `json:"winner,omitempty"`
}

func toABTestResponse(t *models.ABTest) abTestResponse {
	resp := abTestResponse{
		ID:           t.ID.String(),
		VariantA:     t.VariantA.String(),
		VariantB:     t.VariantB.String(),
		TrafficSplit: t.TrafficSplit,
		Status:       string(t.Status),
	}
	if t.Winner != nil {
		winner := string(*t.Winner)
		resp.Winner = &winner
	}
	return resp
}

type redirectRuleResponse struct {
	ID              string                   `json:"id"`
	TargetVersionID string                   `json:"target_version_id"`
	Condition       models.RedirectCondition `json:"condition"`
	Priority        int                      `json:"priority"`
	Enabled         bool                     `json:"enabled"`
}

func toRedirectRuleResponse(r *models.RedirectRule) redirectRuleResponse {
	return redirectRuleResponse{
		ID:              r.ID.String(),
		TargetVersionID: r.TargetVersionID.String(),
		Condition:       r.Condition,
		Priority:        r.Priority,
		Enabled:         r.Enabled,
	}
}

type contentScheduleResponse struct {
	ID              string           `json:"id"`
	TargetVersionID string           `json:"target_version_id"`
	StartAt         *time.Time       `json:"start_at,omitempty"`
	EndAt           *time.Time       `json:"end_at,omitempty"`
	Repeat          *models.Schedule `json:"repeat,omitempty"`
	Active          bool             `json:"active"`
}

func toContentScheduleResponse(s *models.ContentSchedule) contentScheduleResponse {
	return contentScheduleResponse{
		ID:              s.ID.String(),
		TargetVersionID: s.TargetVersionID.String(),
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		Repeat:          s.Repeat,
		Active:          s.Active,
	}
}
