package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/store/memory"
)

type fixture struct {
	stores store.Stores
	router http.Handler
	org    *models.Organization
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := memory.NewStores()
	org := newOrganization(t, stores, "Acme")

	r := chi.NewRouter()
	r.Mount("/api", NewHandler(stores, nil).Routes())

	return &fixture{stores: stores, router: r, org: org}
}

func newOrganization(t *testing.T, stores store.Stores, name string) *models.Organization {
	t.Helper()
	now := time.Now().UTC()
	org := &models.Organization{ID: uuid.Must(uuid.NewV7()), Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, stores.Organizations.Create(t.Context(), org))
	return org
}

func (f *fixture) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	return f.userIn(t, f.org.ID, email, role)
}

func (f *fixture) userIn(t *testing.T, orgID uuid.UUID, email string, role models.Role) *models.User {
	t.Helper()
	user, err := models.NewUser(orgID, email, role)
	require.NoError(t, err)
	require.NoError(t, f.stores.Users.Create(t.Context(), user))
	return user
}

// do sends a request as user (nil for anonymous) and returns the recorded response.
func (f *fixture) do(t *testing.T, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, nil, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"API is working"}`, rec.Body.String())
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)

	rec := f.do(t, nil, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, member, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, member.ID, decodeBody[models.User](t, rec).ID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{models.MissingFields("name", "status"), http.StatusBadRequest, "Missing required fields: name, status"},
		{auth.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
		{auth.ErrForbidden, http.StatusForbidden, "Insufficient permissions"},
		{errMasterAdminRequired, http.StatusForbidden, "Access denied. Master admin privileges required."},
		{store.ErrUserAlreadyExists, http.StatusConflict, "User already exists"},
		{errUserExistsInOrganization, http.StatusConflict, "User already exists in this organization"},
		{store.ErrServiceNotFound, http.StatusNotFound, "Service not found"},
		{store.ErrIncidentNotFound, http.StatusNotFound, "Incident not found"},
		{store.ErrNotificationNotFound, http.StatusNotFound, "Notification not found"},
		{http.ErrHandlerTimeout, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			status, message := classify(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.message, message)
		})
	}
}
