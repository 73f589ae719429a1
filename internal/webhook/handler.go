package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Handler receives signed identity-provider webhooks.
type Handler struct {
	verifier   *Verifier
	reconciler *Reconciler
}

// NewHandler creates a handler. A nil verifier rejects every delivery.
func NewHandler(verifier *Verifier, reconciler *Reconciler) *Handler {
	return &Handler{verifier: verifier, reconciler: reconciler}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	metrics := telemetry.GetMetrics()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	if h.verifier == nil {
		logger.Error().Msg("Webhook received but no secret is configured")
		metrics.RecordWebhookEvent(ctx, "", "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrNoSecret.Error()})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid body"})
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		logger.Warn().Err(err).Msg("Webhook signature rejected")
		metrics.RecordWebhookEvent(ctx, "", "rejected")
		msg := "Invalid signature"
		if errors.Is(err, ErrMissingHeaders) {
			msg = "Missing svix headers"
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	outcome, err := h.reconciler.Apply(ctx, evt)
	switch {
	case errors.Is(err, ErrNoEmail), errors.Is(err, ErrNoUserID):
		metrics.RecordWebhookEvent(ctx, evt.Type, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		logger.Error().Err(err).Str("type", evt.Type).Str("external_id", evt.Data.ID).Msg("Webhook reconcile failed")
		metrics.RecordWebhookEvent(ctx, evt.Type, "error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	logger.Info().
		Str("type", evt.Type).
		Str("external_id", evt.Data.ID).
		Str("outcome", string(outcome)).
		Msg("Webhook processed")
	metrics.RecordWebhookEvent(ctx, evt.Type, string(outcome))

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
