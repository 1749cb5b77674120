package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/app"
	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// WebhookProcessor is what the handler needs from the app service; an
// interface so tests can mock the whole pipeline.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, assunto string, dados map[string]interface{}) (*app.Result, error)
}

// omieWebhookPayload is the inbound notification shape:
// {"assunto": "...", "dados": {...identifier and detail fields...}}.
type omieWebhookPayload struct {
	Assunto string                 `json:"assunto"`
	Dados   map[string]interface{} `json:"dados"`
}

type WebhookHandler struct {
	processor WebhookProcessor
	logger    *slog.Logger
}

func NewWebhookHandler(processor WebhookProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger.With("component", "webhook_handler"),
	}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/omie", h.HandleOmieWebhook)
}

// HandleOmieWebhook receives título lifecycle events from Omie. Every
// "handled" outcome (ignored, no boleto, no contact, dispatch failed or
// succeeded) answers 200 with the structured result; only faults of the
// pipeline itself map to 4xx/5xx.
func (h *WebhookHandler) HandleOmieWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi_middleware.GetReqID(ctx)
	logger := h.logger.With("request_id", requestID)

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	// UseNumber keeps surrogate codes at full precision instead of
	// collapsing them into float64.
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var payload omieWebhookPayload
	if err := decoder.Decode(&payload); err != nil {
		logger.WarnContext(ctx, "Failed to decode webhook payload", "error", err)
		respondWithError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}

	logger.InfoContext(ctx, "Received Omie webhook", "assunto", payload.Assunto, "remote_addr", r.RemoteAddr)

	result, err := h.processor.HandleWebhook(ctx, payload.Assunto, payload.Dados)
	if err != nil {
		status := mapDomainErrorToHTTPStatus(err)
		logger.ErrorContext(ctx, "Webhook processing failed", "error", err, "status_code", status)
		respondWithError(w, status, err.Error())
		return
	}

	logger.InfoContext(ctx, "Webhook handled",
		"ok", result.OK, "ignored", result.Ignored, "sent", result.Sent, "reason", result.Reason)
	respondWithJSON(w, http.StatusOK, result)
}

// HandleHealth answers liveness checks with a static status payload.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "Notifier service is healthy"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// mapDomainErrorToHTTPStatus is the single place where pipeline error kinds
// become HTTP status codes.
func mapDomainErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
