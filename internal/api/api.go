// Package api implements the tenant-scoped JSON resource API mounted at /api.
//
// Every handler takes the organization from the authenticated user placed in
// the request context by the access gate; organization IDs in request bodies
// are ignored.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/events"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler serves the resource API.
type Handler struct {
	stores   store.Stores
	notifier *events.Notifier
}

// NewHandler creates the API handler. A nil notifier records notifications
// without publishing them.
func NewHandler(stores store.Stores, notifier *events.Notifier) *Handler {
	if notifier == nil {
		notifier = events.NewNotifier(stores.Notifications, nil)
	}
	return &Handler{stores: stores, notifier: notifier}
}

// Routes returns the API router, to be mounted at /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.health)
	r.Get("/me", h.me)

	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.listServices)
		r.Post("/", h.createService)
		r.Get("/{id}", h.getService)
		r.Put("/{id}", h.replaceService)
		r.Patch("/{id}", h.patchService)
		r.Delete("/{id}", h.deleteService)
	})

	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.listIncidents)
		r.Post("/", h.createIncident)
		r.Get("/{id}", h.getIncident)
		r.Put("/{id}", h.replaceIncident)
		r.Patch("/{id}", h.patchIncident)
		r.Delete("/{id}", h.deleteIncident)
		r.Get("/{id}/updates", h.listIncidentUpdates)
		r.Post("/{id}/updates", h.createIncidentUpdate)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Post("/add", h.addUser)
		r.Get("/master-admin", h.masterAdminListUsers)
		r.Post("/master-admin", h.masterAdminCreateUser)
		r.Put("/master-admin", h.masterAdminUpdateUsers)
		r.Get("/{id}", h.getUser)
		r.Patch("/{id}", h.patchUser)
		r.Delete("/{id}", h.deleteUser)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Post("/", h.createNotification)
		r.Post("/read-all", h.markAllNotificationsRead)
		r.Patch("/{id}/read", h.markNotificationRead)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is working"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// authorize returns the calling user when their role grants perm, otherwise
// it writes the error response and returns false.
func authorize(w http.ResponseWriter, r *http.Request, perm auth.Permission) (*models.User, bool) {
	if err := auth.RequirePermission(r.Context(), perm); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	user, _ := auth.UserFromContext(r.Context())
	return user, true
}

// pathID parses the {id} URL parameter, answering notFound when it is not a UUID.
func pathID(r *http.Request, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.Invalid("Invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to its HTTP status and writes {"error": "..."}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func classify(err error) (int, string) {
	var validation *models.ValidationError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errMasterAdminRequired):
		return http.StatusForbidden, "Access denied. Master admin privileges required."
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, errUserExistsInOrganization):
		return http.StatusConflict, "User already exists in this organization"
	case errors.Is(err, store.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "Service not found"
	case errors.Is(err, store.ErrIncidentNotFound):
		return http.StatusNotFound, "Incident not found"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, store.ErrNotificationNotFound):
		return http.StatusNotFound, "Notification not found"
	case errors.Is(err, store.ErrOrganizationNotFound):
		return http.StatusNotFound, "Organization not found"
	}

	return http.StatusInternalServerError, "Internal server error"
}
