package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/export"
	"sapphire/internal/platform/metrics"
	"sapphire/internal/platform/middleware"
	"sapphire/internal/transport/http/shared"
	dErrors "sapphire/pkg/domain-errors"
	"sapphire/pkg/requestcontext"
)

// Service defines the privacy engine operations the transport exposes.
type Service interface {
	GetConsentStatus(ctx context.Context, userID string) (consent.Status, error)
	RecordConsent(ctx context.Context, userID, consentType string, granted bool) error
	ExportUserData(ctx context.Context, userID string) (export.Bundle, error)
	DeleteUserData(ctx context.Context, userID string, softDelete bool) error
	AuditTrail(ctx context.Context, userID string) ([]audit.Entry, error)
}

// Handler handles the authenticated /me endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	metadata     *middleware.Metadata
	jwtValidator middleware.JWTValidator
}

func NewHandler(
	service Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	metadata *middleware.Metadata,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		metrics:      m,
		metadata:     metadata,
		jwtValidator: jwtValidator,
	}
}

// Register registers the /me routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	meRouter := chi.NewRouter()
	meRouter.Use(middleware.Recovery(h.logger))
	meRouter.Use(middleware.RequestID)
	meRouter.Use(middleware.Logger(h.logger))
	meRouter.Use(middleware.Timeout(30 * time.Second))
	meRouter.Use(middleware.ContentTypeJSON)
	meRouter.Use(middleware.Latency(h.metrics))
	meRouter.Use(h.metadata.Handler)
	meRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	meRouter.Get("/me/consent", h.handleGetConsent)
	meRouter.Post("/me/consent", h.handleRecordConsent)
	meRouter.Post("/me/data-export", h.handleDataExport)
	meRouter.Delete("/me", h.handleDeleteAccount)
	meRouter.Get("/me/audit", h.handleAuditTrail)

	r.Mount("/", meRouter)
}

// authenticatedUser pulls the user ID set by RequireAuth. An empty value means
// the middleware chain is misconfigured, not a client error.
func (h *Handler) authenticatedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

// handleGetConsent returns the user's decision for every supported consent type.
func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetConsentStatus(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get consent status",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, consentStatusResponse{Consents: status})
}

type consentStatusResponse struct {
	Consents consent.Status `json:"consents"`
}

type recordConsentRequest struct {
	ConsentType string `json:"consentType"`
	IsGranted   *bool  `json:"isGranted"`
}

// handleRecordConsent appends one consent decision for the authenticated user.
func (h *Handler) handleRecordConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req recordConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid consent request body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.IsGranted == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "isGranted is required"))
		return
	}

	if err := h.service.RecordConsent(ctx, userID, req.ConsentType, *req.IsGranted); err != nil {
		h.logger.WarnContext(ctx, "failed to record consent",
			"request_id", requestcontext.RequestID(ctx),
			"consent_type", req.ConsentType,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDataExport builds and returns the full personal data bundle.
func (h *Handler) handleDataExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	bundle, err := h.service.ExportUserData(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to build data export",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, bundle)
}

// handleDeleteAccount starts (or resumes) the hard deletion pipeline. A repeat
// call after completion succeeds without doing anything.
func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUserData(ctx, userID, false); err != nil {
		h.logger.ErrorContext(ctx, "account deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAuditTrail returns the user's lifecycle audit entries, oldest first.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	entries, err := h.service.AuditTrail(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, auditTrailResponse{Entries: entries})
}

type auditTrailResponse struct {
	Entries []audit.Entry `json:"entries"`
}
