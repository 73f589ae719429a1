package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsRead)
	if !ok {
		return
	}

	incidents, err := h.stores.Incidents.List(r.Context(), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(incidents))
}

func (h *Handler) createIncident(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsWrite)
	if !ok {
		return
	}

	var in models.IncidentInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	incident := &models.Incident{
		ID:             id,
		OrganizationID: user.OrganizationID,
		ServiceID:      in.ServiceID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		CreatedByID:    &user.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.stores.Incidents.Create(ctx, incident); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.stores.Incidents.Get(ctx, user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.recordActivity(r, user, models.ActivityIncidentCreated)
	h.notifier.IncidentCreated(ctx, user, created)

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getIncident(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsRead)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrIncidentNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	incident, err := h.stores.Incidents.Get(ctx, user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updates, err := h.stores.Incidents.ListUpdates(ctx, user.OrganizationID, id, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.IncidentDetail{Incident: incident, Updates: nonNil(updates)})
}

func (h *Handler) replaceIncident(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsWrite)
	if !ok {
		return
	}

	var in models.IncidentInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	h.updateIncident(w, r, user, in.Patch())
}

func (h *Handler) patchIncident(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsWrite)
	if !ok {
		return
	}

	var patch models.IncidentPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	h.updateIncident(w, r, user, patch)
}

func (h *Handler) updateIncident(w http.ResponseWriter, r *http.Request, user *models.User, patch models.IncidentPatch) {
	id, err := pathID(r, store.ErrIncidentNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	before, err := h.stores.Incidents.Get(ctx, user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	incident, err := h.stores.Incidents.Update(ctx, user.OrganizationID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.notifier.IncidentChanged(ctx, user, before, incident)

	writeJSON(w, http.StatusOK, incident)
}

func (h *Handler) deleteIncident(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsDelete)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrIncidentNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.stores.Incidents.Delete(r.Context(), user.OrganizationID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Incident deleted successfully"})
}

func (h *Handler) listIncidentUpdates(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsRead)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrIncidentNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updates, err := h.stores.Incidents.ListUpdates(r.Context(), user.OrganizationID, id, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(updates))
}

type updateRequest struct {
	Content string `json:"content"`
}

func (h *Handler) createIncidentUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermIncidentsWrite)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrIncidentNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in updateRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Content == "" {
		writeError(w, r, models.MissingFields("content"))
		return
	}

	ctx := r.Context()

	incident, err := h.stores.Incidents.Get(ctx, user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updateID, err := uuid.NewV7()
	if err != nil {
		writeError(w, r, err)
		return
	}

	update := &models.IncidentUpdate{
		ID:         updateID,
		IncidentID: incident.ID,
		Content:    in.Content,
		AuthorID:   &user.ID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.stores.Incidents.AddUpdate(ctx, user.OrganizationID, update); err != nil {
		writeError(w, r, err)
		return
	}

	h.recordActivity(r, user, models.ActivityUpdatePosted)
	h.notifier.UpdatePosted(ctx, user, incident, update)

	writeJSON(w, http.StatusCreated, update)
}

// recordActivity bumps the caller's activity counters. Failures are logged only.
func (h *Handler) recordActivity(r *http.Request, user *models.User, activity models.Activity) {
	if err := h.stores.Users.RecordActivity(r.Context(), user.ID, activity); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to record user activity")
	}
}
