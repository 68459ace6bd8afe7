// Package handler exposes the public scan endpoint. It assembles the scan
// context from the request, invokes the coordinator, and translates the
// outcome into the wire shapes.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrflow/internal/scan/models"
	"qrflow/internal/scan/service"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/platform/httputil"
	"qrflow/pkg/platform/middleware/metadata"
	"qrflow/pkg/platform/middleware/requesttime"
	"qrflow/pkg/requestcontext"
)

// Resolver drives one scan end to end.
type Resolver interface {
	Resolve(ctx context.Context, shortID, password string, sctx *models.ScanContext) (*service.Outcome, error)
}

// Handler serves the public scan routes.
type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

// New creates a scan Handler.
func New(resolver Resolver, logger *slog.Logger) (*Handler, error) {
	if resolver == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "resolver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, logger: logger}, nil
}

// Register mounts the scan routes. The endpoint is public; the only
// middleware it needs is request time and client metadata extraction.
func (h *Handler) Register(r chi.Router) {
	scanRouter := chi.NewRouter()
	scanRouter.Use(requesttime.Middleware)
	scanRouter.Use(metadata.ClientMetadata)
	scanRouter.Get("/s/{shortID}", h.handleScan)
	scanRouter.Post("/s/{shortID}", h.handleScan)

	r.Mount("/", scanRouter)
}

// scanRequest is the optional POST body. GET scans carry the same fields as
// query parameters.
type scanRequest struct {
	Password    string   `json:"password"`
	ScreenWidth int      `json:"screen_width"`
	Timezone    string   `json:"timezone"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	shortID := chi.URLParam(r, "shortID")

	req := decodeScanRequest(r)
	sctx := buildScanContext(ctx, r, req)

	outcome, err := h.resolver.Resolve(ctx, shortID, req.Password, sctx)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "scan resolution failed",
				"request_id", requestID,
				"short_id", shortID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	ensureSessionCookie(w, r, sctx)

	if outcome.Resolution == nil {
		httputil.WriteJSON(w, rejectionStatus(outcome.Validity.Reason), outcome.Validity)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome.Resolution)
}

// rejectionStatus maps a failed verdict to a status code. Password gates use
// auth codes so clients can prompt; everything else is a plain denial.
func rejectionStatus(reason models.ValidityReason) int {
	switch reason {
	case models.ReasonPasswordRequired:
		return http.StatusUnauthorized
	case models.ReasonPasswordInvalid:
		return http.StatusUnauthorized
	case models.ReasonExpired, models.ReasonScanLimit:
		return http.StatusGone
	default:
		return http.StatusForbidden
	}
}

// ensureSessionCookie issues the visitor session token on first contact so
// repeat scans get stable A/B variant assignment.
func ensureSessionCookie(w http.ResponseWriter, r *http.Request, sctx *models.ScanContext) {
	if _, err := r.Cookie(metadata.SessionCookieName); err == nil {
		return
	}
	if sctx.SessionToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     metadata.SessionCookieName,
		Value:    sctx.SessionToken,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
