// Package handler exposes the authenticated management API for QR codes and
// their delivery configuration.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrflow/internal/qrcode/models"
	"qrflow/internal/qrcode/service"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/platform/httputil"
	"qrflow/pkg/platform/middleware/auth"
	"qrflow/pkg/platform/middleware/requesttime"
	"qrflow/pkg/requestcontext"
)

// Service is the management surface consumed by this handler.
type Service interface {
	CreateQRCode(ctx context.Context, accountID id.AccountID, t id.SubscriptionTier, input service.CreateQRCodeInput) (*models.QRCode, error)
	UpdateQRCode(ctx context.Context, accountID id.AccountID, t id.SubscriptionTier, qrID id.QRCodeID, input service.UpdateQRCodeInput) (*models.QRCode, error)
	GetQRCode(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) (*models.QRCode, error)
	CreateVersion(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, content string, contentType models.ContentType) (*models.ContentVersion, error)
	ActivateVersion(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, versionID id.VersionID) error
	ListVersions(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) ([]*models.ContentVersion, error)
	CreateRule(ctx context.Context, accountID id.AccountID, rule *models.ContentRule) (*models.ContentRule, error)
	UpdateRule(ctx context.Context, accountID id.AccountID, rule *models.ContentRule) (*models.ContentRule, error)
	DeleteRule(ctx context.Context, accountID id.AccountID, ruleID id.RuleID) error
	ListRules(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID) ([]*models.ContentRule, error)
	CreateABTest(ctx context.Context, accountID id.AccountID, qrID id.QRCodeID, variantA, variantB id.VersionID, trafficSplit int) (*models.ABTest, error)
	TransitionABTest(ctx context.Context, accountID id.AccountID, testID id.ABTestID, next models.ABTestStatus, winner *models.Variant) (*models.ABTest, error)
	CreateRedirectRule(ctx context.Context, accountID id.AccountID, rule *models.RedirectRule) (*models.RedirectRule, error)
	CreateContentSchedule(ctx context.Context, accountID id.AccountID, sched *models.ContentSchedule) (*models.ContentSchedule, error)
}

// Handler serves the management routes.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator auth.TokenValidator
}

// New creates a management Handler.
func New(svc Service, validator auth.TokenValidator, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "service is required")
	}
	if validator == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, logger: logger, validator: validator}, nil
}

// Register mounts the management routes under /api/v1.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(requesttime.Middleware)
	api.Use(auth.RequireAccount(h.validator, h.logger))

	api.Post("/qrcodes", h.handleCreateQRCode)
	api.Get("/qrcodes/{qrID}", h.handleGetQRCode)
	api.Patch("/qrcodes/{qrID}", h.handleUpdateQRCode)

	api.Post("/qrcodes/{qrID}/versions", h.handleCreateVersion)
	api.Get("/qrcodes/{qrID}/versions", h.handleListVersions)
	api.Post("/qrcodes/{qrID}/versions/{versionID}/activate", h.handleActivateVersion)

	api.Post("/qrcodes/{qrID}/rules", h.handleCreateRule)
	api.Get("/qrcodes/{qrID}/rules", h.handleListRules)
	api.Put("/rules/{ruleID}", h.handleUpdateRule)
	api.Delete("/rules/{ruleID}", h.handleDeleteRule)

	api.Post("/qrcodes/{qrID}/abtests", h.handleCreateABTest)
	api.Post("/abtests/{testID}/transition", h.handleTransitionABTest)

	api.Post("/qrcodes/{qrID}/redirect-rules", h.handleCreateRedirectRule)
	api.Post("/qrcodes/{qrID}/schedules", h.handleCreateContentSchedule)

	r.Mount("/api/v1", api)
}

func (h *Handler) handleCreateQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[createQRCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	qr, err := h.service.CreateQRCode(ctx, requestcontext.AccountID(ctx), requestcontext.Tier(ctx), service.CreateQRCodeInput{
		Name:               req.Name,
		ExpiresAt:          req.ExpiresAt,
		MaxScans:           req.MaxScans,
		Password:           req.Password,
		Schedule:           req.Schedule,
		DefaultContent:     req.DefaultContent,
		DefaultContentType: models.ContentType(req.DefaultContentType),
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create qr code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toQRCodeResponse(qr))
}

func (h *Handler) handleGetQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	qr, err := h.service.GetQRCode(ctx, requestcontext.AccountID(ctx), qrID)
	if err != nil {
		h.writeServiceError(ctx, w, "get qr code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQRCodeResponse(qr))
}

func (h *Handler) handleUpdateQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[updateQRCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	qr, err := h.service.UpdateQRCode(ctx, requestcontext.AccountID(ctx), requestcontext.Tier(ctx), qrID, service.UpdateQRCodeInput{
		Name:          req.Name,
		Active:        req.Active,
		ExpiresAt:     req.ExpiresAt,
		MaxScans:      req.MaxScans,
		Password:      req.Password,
		ClearPassword: req.ClearPassword,
		Schedule:      req.Schedule,
		ClearSchedule: req.ClearSchedule,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "update qr code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQRCodeResponse(qr))
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createVersionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.CreateVersion(ctx, requestcontext.AccountID(ctx), qrID, req.Content, models.ContentType(req.ContentType))
	if err != nil {
		h.writeServiceError(ctx, w, "create version", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toVersionResponse(v))
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	versions, err := h.service.ListVersions(ctx, requestcontext.AccountID(ctx), qrID)
	if err != nil {
		h.writeServiceError(ctx, w, "list versions", err)
		return
	}
	out := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionResponse(v))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleActivateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	versionID, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.ActivateVersion(ctx, requestcontext.AccountID(ctx), qrID, versionID); err != nil {
		h.writeServiceError(ctx, w, "activate version", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createRuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rule := req.toModel()
	rule.QRCodeID = qrID
	created, err := h.service.CreateRule(ctx, requestcontext.AccountID(ctx), rule)
	if err != nil {
		h.writeServiceError(ctx, w, "create rule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRuleResponse(created))
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rules, err := h.service.ListRules(ctx, requestcontext.AccountID(ctx), qrID)
	if err != nil {
		h.writeServiceError(ctx, w, "list rules", err)
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "ruleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createRuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rule := req.toModel()
	rule.ID = ruleID
	updated, err := h.service.UpdateRule(ctx, requestcontext.AccountID(ctx), rule)
	if err != nil {
		h.writeServiceError(ctx, w, "update rule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRuleResponse(updated))
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "ruleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteRule(ctx, requestcontext.AccountID(ctx), ruleID); err != nil {
		h.writeServiceError(ctx, w, "delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateABTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createABTestRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	variantA, err := id.ParseVersionID(req.VariantA)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	variantB, err := id.ParseVersionID(req.VariantB)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	test, err := h.service.CreateABTest(ctx, requestcontext.AccountID(ctx), qrID, variantA, variantB, req.TrafficSplit)
	if err != nil {
		h.writeServiceError(ctx, w, "create test", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toABTestResponse(test))
}

func (h *Handler) handleTransitionABTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID, err := id.ParseABTestID(chi.URLParam(r, "testID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[transitionABTestRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	var winner *models.Variant
	if req.Winner != nil {
		v := models.Variant(*req.Winner)
		winner = &v
	}
	test, err := h.service.TransitionABTest(ctx, requestcontext.AccountID(ctx), testID, models.ABTestStatus(req.Status), winner)
	if err != nil {
		h.writeServiceError(ctx, w, "transition test", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toABTestResponse(test))
}

func (h *Handler) handleCreateRedirectRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createRedirectRuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	targetID, err := id.ParseVersionID(req.TargetVersionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rule := &models.RedirectRule{
		QRCodeID:        qrID,
		TargetVersionID: targetID,
		Condition:       req.Condition,
		Priority:        req.Priority,
		Enabled:         req.Enabled,
	}
	created, err := h.service.CreateRedirectRule(ctx, requestcontext.AccountID(ctx), rule)
	if err != nil {
		h.writeServiceError(ctx, w, "create redirect rule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRedirectRuleResponse(created))
}

func (h *Handler) handleCreateContentSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID, err := id.ParseQRCodeID(chi.URLParam(r, "qrID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[createContentScheduleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	targetID, err := id.ParseVersionID(req.TargetVersionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sched := &models.ContentSchedule{
		QRCodeID:        qrID,
		TargetVersionID: targetID,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Repeat:          req.Repeat,
		Active:          req.Active,
	}
	created, err := h.service.CreateContentSchedule(ctx, requestcontext.AccountID(ctx), sched)
	if err != nil {
		h.writeServiceError(ctx, w, "create content schedule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toContentScheduleResponse(created))
}

// writeServiceError logs unexpected failures and writes the mapped response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "management operation failed",
			"request_id", requestcontext.RequestID(ctx),
			"operation", op,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
