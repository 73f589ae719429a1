package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermNotificationsRead)
	if !ok {
		return
	}

	opts := store.ListNotificationsOptions{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}

	notifications, err := h.stores.Notifications.List(r.Context(), user.OrganizationID, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(notifications))
}

func (h *Handler) createNotification(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermNotificationsWrite)
	if !ok {
		return
	}

	var in models.NotificationInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.resolveReferences(r.Context(), user.OrganizationID, &in); err != nil {
		writeError(w, r, err)
		return
	}

	notification, err := h.notifier.Create(r.Context(), user.OrganizationID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

// resolveReferences checks that every referenced row exists in the organization.
func (h *Handler) resolveReferences(ctx context.Context, orgID uuid.UUID, in *models.NotificationInput) error {
	if in.ServiceID != nil {
		if _, err := h.stores.Services.Get(ctx, orgID, *in.ServiceID); err != nil {
			return err
		}
	}
	if in.IncidentID != nil {
		if _, err := h.stores.Incidents.Get(ctx, orgID, *in.IncidentID); err != nil {
			return err
		}
	}
	if in.UserID != nil {
		if _, err := h.stores.Users.Get(ctx, orgID, *in.UserID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermNotificationsRead)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrNotificationNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.stores.Notifications.MarkRead(r.Context(), user.OrganizationID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermNotificationsRead)
	if !ok {
		return
	}

	updated, err := h.stores.Notifications.MarkAllRead(r.Context(), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
