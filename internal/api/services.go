package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesRead)
	if !ok {
		return
	}

	services, err := h.stores.Services.List(r.Context(), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(services))
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesWrite)
	if !ok {
		return
	}

	var in models.ServiceInput
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

	now := time.Now().UTC()
	svc := &models.Service{
		ID:             id,
		OrganizationID: user.OrganizationID,
		Name:           in.Name,
		Status:         in.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.stores.Services.Create(r.Context(), svc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, svc)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesRead)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrServiceNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	svc, err := h.stores.Services.Get(r.Context(), user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) replaceService(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesWrite)
	if !ok {
		return
	}

	var in models.ServiceInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	h.updateService(w, r, user, in.Patch())
}

func (h *Handler) patchService(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesWrite)
	if !ok {
		return
	}

	var patch models.ServicePatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	h.updateService(w, r, user, patch)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request, user *models.User, patch models.ServicePatch) {
	id, err := pathID(r, store.ErrServiceNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	before, err := h.stores.Services.Get(ctx, user.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	svc, err := h.stores.Services.Update(ctx, user.OrganizationID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.notifier.ServiceStatusChanged(ctx, user, before, svc)

	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermServicesDelete)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrServiceNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.stores.Services.Delete(r.Context(), user.OrganizationID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Service deleted successfully"})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
