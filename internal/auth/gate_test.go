package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/identity"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/store/memory"
)

// headerSessions reads the session from test headers.
var headerSessions = identity.SessionReaderFunc(func(r *http.Request) (*identity.Session, bool) {
	sub := r.Header.Get("X-Test-Sub")
	if sub == "" {
		return nil, false
	}
	return &identity.Session{ExternalID: sub, Email: r.Header.Get("X-Test-Email")}, true
})

// countingUsers counts directory calls and can inject failures.
type countingUsers struct {
	store.UserStore
	calls atomic.Int32
	fail  error
}

func (c *countingUsers) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.UserStore.GetByExternalID(ctx, externalID)
}

func (c *countingUsers) FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.UserStore.FindActiveByEmail(ctx, orgID, email)
}

type gateFixture struct {
	users   *countingUsers
	handler http.Handler
	orgID   uuid.UUID
	linked  *models.User
	byEmail *models.User
}

func newGateFixture(t *testing.T, tenant bool) *gateFixture {
	t.Helper()
	ctx := context.Background()

	users := &countingUsers{UserStore: memory.NewUserStore()}
	orgID := uuid.New()

	linked, err := models.NewUser(orgID, "linked@example.com", models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, linked))
	require.NoError(t, users.LinkExternalID(ctx, linked.ID, "user_linked"))

	byEmail, err := models.NewUser(orgID, "invited@example.com", models.RoleViewer)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, byEmail))

	inactive, err := models.NewUser(orgID, "gone@example.com", models.RoleMember)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, inactive))
	require.NoError(t, users.LinkExternalID(ctx, inactive.ID, "user_gone"))
	_, err = users.Deactivate(ctx, orgID, inactive.ID)
	require.NoError(t, err)

	outsider, err := models.NewUser(uuid.New(), "outsider@example.com", models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, outsider))
	require.NoError(t, users.LinkExternalID(ctx, outsider.ID, "user_outsider"))

	cfg := GateConfig{
		Protected:       []string{"/dashboard", "/api/"},
		SignInURL:       "/sign-in",
		AccessDeniedURL: "/not-authorized",
	}
	if tenant {
		cfg.TenantID = orgID
	}

	gate := NewGate(cfg, headerSessions, users)
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok {
			w.Header().Set("X-User-ID", user.ID.String())
			orgID, _ := OrganizationFromContext(r.Context())
			w.Header().Set("X-Org-ID", orgID.String())
		}
		w.WriteHeader(http.StatusOK)
	}))

	return &gateFixture{users: users, handler: handler, orgID: orgID, linked: linked, byEmail: byEmail}
}

func (f *gateFixture) do(path, sub, email string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sub != "" {
		req.Header.Set("X-Test-Sub", sub)
	}
	if email != "" {
		req.Header.Set("X-Test-Email", email)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestGate_UnprotectedPathsPassThrough(t *testing.T) {
	f := newGateFixture(t, false)

	for _, path := range []string{"/", "/status/abc", "/webhooks/identity", "/dashboards"} {
		rec := f.do(path, "", "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Empty(t, rec.Header().Get("X-User-ID"))
	}
	require.Zero(t, f.users.calls.Load())
}

func TestGate_NoSession(t *testing.T) {
	f := newGateFixture(t, false)

	rec := f.do("/api/services", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = f.do("/dashboard", "", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/sign-in", rec.Header().Get("Location"))

	require.Zero(t, f.users.calls.Load(), "directory must not be consulted without a session")
}

func TestGate_Allowed(t *testing.T) {
	f := newGateFixture(t, false)

	t.Run("by external id", func(t *testing.T) {
		rec := f.do("/api/services", "user_linked", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, f.linked.ID.String(), rec.Header().Get("X-User-ID"))
		require.Equal(t, f.orgID.String(), rec.Header().Get("X-Org-ID"))
	})

	t.Run("by email fallback", func(t *testing.T) {
		rec := f.do("/dashboard", "user_new", "Invited@Example.com")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, f.byEmail.ID.String(), rec.Header().Get("X-User-ID"))
	})

	t.Run("gate does not link the external id", func(t *testing.T) {
		got, err := f.users.Get(context.Background(), f.orgID, f.byEmail.ID)
		require.NoError(t, err)
		require.Nil(t, got.ExternalID)
	})
}

func TestGate_Denied(t *testing.T) {
	f := newGateFixture(t, true)

	tests := []struct {
		name  string
		sub   string
		email string
	}{
		{name: "unknown user", sub: "user_unknown"},
		{name: "unknown email", sub: "user_unknown", email: "nobody@example.com"},
		{name: "inactive user", sub: "user_gone"},
		{name: "inactive user by email", sub: "user_x", email: "gone@example.com"},
		{name: "other tenant", sub: "user_outsider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("/api/incidents", tt.sub, tt.email)
			require.Equal(t, http.StatusForbidden, rec.Code)
			require.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())

			rec = f.do("/dashboard", tt.sub, tt.email)
			require.Equal(t, http.StatusFound, rec.Code)
			require.Equal(t, "/not-authorized", rec.Header().Get("Location"))
		})
	}
}

func TestGate_FailsClosed(t *testing.T) {
	f := newGateFixture(t, false)
	f.users.fail = errors.New("connection refused")

	rec := f.do("/api/services", "user_linked", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())

	rec = f.do("/dashboard", "user_linked", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/not-authorized", rec.Header().Get("Location"))
}

func TestGate_EmailFallbackStaysInTenant(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	orgA, orgB := uuid.New(), uuid.New()

	older, err := models.NewUser(orgA, "bob@example.com", models.RoleAdmin)
	require.NoError(t, err)
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	require.NoError(t, users.Create(ctx, older))

	tenant, err := models.NewUser(orgB, "bob@example.com", models.RoleMember)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, tenant))

	gate := NewGate(GateConfig{
		Protected:       []string{"/api/"},
		SignInURL:       "/sign-in",
		AccessDeniedURL: "/not-authorized",
		TenantID:        orgB,
	}, headerSessions, users)
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		w.Header().Set("X-User-ID", user.ID.String())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("X-Test-Sub", "user_new")
	req.Header.Set("X-Test-Email", "bob@example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, tenant.ID.String(), rec.Header().Get("X-User-ID"))
}
