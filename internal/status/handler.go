package status

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/assets"
	httputil "github.com/wolfeidau/statuspage/internal/http"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/telemetry"
)

// CacheMaxAge is the public cache lifetime of the JSON view, in seconds.
const CacheMaxAge = 30

// Handler serves the HTML and JSON status views.
type Handler struct {
	builder *Builder
	pages   *assets.Pages
}

// NewHandler creates a status handler.
func NewHandler(builder *Builder, pages *assets.Pages) *Handler {
	return &Handler{builder: builder, pages: pages}
}

// HTML renders the status page. Routed as GET /status/{organizationId}.
func (h *Handler) HTML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.build(r)
	switch {
	case errors.Is(err, store.ErrOrganizationNotFound):
		h.pages.Render(ctx, w, http.StatusNotFound, "not_found.html", map[string]any{
			"Title":   "Not found",
			"Context": "No status page exists for this organization.",
		})
		return
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to build status page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	telemetry.GetMetrics().RecordStatusView(ctx, "html")

	h.pages.Render(ctx, w, http.StatusOK, "status.html", map[string]any{
		"Title":   page.Organization.Name + " status",
		"Context": page,
	})
}

// JSON writes the status page as cacheable JSON. Routed as GET /api/status/{organizationId}.
func (h *Handler) JSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.build(r)
	switch {
	case errors.Is(err, store.ErrOrganizationNotFound):
		writeError(w, http.StatusNotFound, "Organization not found")
		return
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to build status page")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	telemetry.GetMetrics().RecordStatusView(ctx, "json")

	httputil.WriteCacheableJSON(w, r, page, CacheMaxAge)
}

func (h *Handler) build(r *http.Request) (*Page, error) {
	orgID, err := uuid.Parse(chi.URLParam(r, "organizationId"))
	if err != nil {
		return nil, store.ErrOrganizationNotFound
	}
	return h.builder.Build(r.Context(), orgID)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
