package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/cmd/statusctl/internal/credentials"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/status"
)

// fakeAPI records the calls statusctl makes.
type fakeAPI struct {
	mu        sync.Mutex
	orgID     uuid.UUID
	service   *models.Service
	created   []models.IncidentInput
	patched   map[uuid.UUID]models.IncidentPatch
	updates   []string
	readAll   int
	statusHit int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{
		orgID:   uuid.New(),
		service: &models.Service{ID: uuid.New(), Name: "Database", Status: models.ServiceOperational},
		patched: map[uuid.UUID]models.IncidentPatch{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.statusHit++
		api.mu.Unlock()
		w.Header().Set("Cache-Control", "public, max-age=30")
		writeTestJSON(w, http.StatusOK, status.Page{
			Organization: &models.Organization{ID: api.orgID, Name: "Acme"},
			Services: []*status.ServiceView{{
				Service: api.service,
				Incidents: []*status.IncidentView{{
					Incident: &models.Incident{Title: "Replica lag", Status: models.IncidentOpen},
					Updates:  []*models.IncidentUpdate{{Content: "Investigating"}},
				}},
			}},
		})
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeTestJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /api/me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, models.User{Email: "sam@example.com", Role: models.RoleAdmin, OrganizationID: api.orgID})
	}))
	mux.HandleFunc("GET /api/services", authed(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []*models.Service{api.service})
	}))
	mux.HandleFunc("GET /api/incidents", authed(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []*models.Incident{
			{ID: uuid.New(), Title: "Replica lag", Status: models.IncidentOpen, Service: api.service.Summary()},
			{ID: uuid.New(), Title: "Old outage", Status: models.IncidentResolved},
		})
	}))
	mux.HandleFunc("POST /api/incidents", authed(func(w http.ResponseWriter, r *http.Request) {
		var in models.IncidentInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		api.mu.Lock()
		api.created = append(api.created, in)
		api.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, models.Incident{ID: uuid.New(), Title: in.Title, Status: in.Status})
	}))
	mux.HandleFunc("PATCH /api/incidents/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.MustParse(r.PathValue("id"))
		var patch models.IncidentPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		api.mu.Lock()
		api.patched[id] = patch
		api.mu.Unlock()
		writeTestJSON(w, http.StatusOK, models.Incident{ID: id})
	}))
	mux.HandleFunc("POST /api/incidents/{id}/updates", authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		api.mu.Lock()
		api.updates = append(api.updates, body.Content)
		api.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, models.IncidentUpdate{ID: uuid.New(), Content: body.Content})
	}))
	mux.HandleFunc("GET /api/notifications", authed(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []*models.Notification{
			{Title: "Incident created", Message: "Replica lag", Type: models.NotificationIncidentCreated, CreatedAt: time.Now()},
		})
	}))
	mux.HandleFunc("POST /api/notifications/read-all", authed(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.readAll++
		api.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]int{"updated": 1})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return api, srv
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newGlobals(t *testing.T, serverURL, token string) (*Globals, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Globals{
		ServerURL:      serverURL,
		Token:          token,
		CredentialsDir: t.TempDir(),
		Out:            &out,
	}, &out
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incident.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadIncidentManifest(t *testing.T) {
	m, err := LoadIncidentManifest(writeManifest(t, `
service: Database
title: Replica lag
updates:
  - Investigating
  - Fixed
`))
	require.NoError(t, err)
	require.Equal(t, models.IncidentOpen, m.Status)
	require.Equal(t, []string{"Investigating", "Fixed"}, m.Updates)

	_, err = LoadIncidentManifest(writeManifest(t, "title: No service\n"))
	require.ErrorContains(t, err, "service is required")

	_, err = LoadIncidentManifest(writeManifest(t, "service: x\ntitle: y\nstatus: CLOSED\n"))
	require.ErrorContains(t, err, "invalid status")
}

func TestIncidentApply_Create(t *testing.T) {
	api, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "tok")

	cmd := &IncidentApplyCmd{File: writeManifest(t, `
service: database
title: Replica lag
description: Reads are stale
status: OPEN
updates:
  - Investigating
  - Failover complete
`)}
	require.NoError(t, cmd.Run(t.Context(), globals))

	require.Len(t, api.created, 1)
	require.Equal(t, api.service.ID, api.created[0].ServiceID)
	require.Equal(t, "Reads are stale", api.created[0].Description)
	require.Equal(t, []string{"Investigating", "Failover complete"}, api.updates)
	require.Contains(t, out.String(), "Created incident")
	require.Contains(t, out.String(), "Posted 2 update(s)")
}

func TestIncidentApply_Update(t *testing.T) {
	api, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "tok")
	id := uuid.New()

	cmd := &IncidentApplyCmd{File: writeManifest(t, `
id: `+id.String()+`
service: `+api.service.ID.String()+`
title: Replica lag
status: RESOLVED
`)}
	require.NoError(t, cmd.Run(t.Context(), globals))

	require.Empty(t, api.created)
	patch, ok := api.patched[id]
	require.True(t, ok)
	require.Equal(t, models.IncidentResolved, *patch.Status)
	require.Contains(t, out.String(), "Updated incident "+id.String())
}

func TestIncidentApply_UnknownService(t *testing.T) {
	_, srv := newFakeAPI(t)
	globals, _ := newGlobals(t, srv.URL, "tok")

	cmd := &IncidentApplyCmd{File: writeManifest(t, "service: Cache\ntitle: Down\n")}
	require.ErrorContains(t, cmd.Run(t.Context(), globals), `service "Cache" not found`)
}

func TestStatusCmd(t *testing.T) {
	api, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "")

	cmd := &StatusCmd{OrgID: api.orgID.String()}
	require.NoError(t, cmd.Run(t.Context(), globals))
	require.Contains(t, out.String(), "Acme status\n")
	require.Contains(t, out.String(), "[OPEN] Replica lag")
	require.Contains(t, out.String(), "Investigating")

	require.ErrorContains(t, (&StatusCmd{OrgID: "acme"}).Run(t.Context(), globals), "invalid organization ID")
}

func TestListCommands(t *testing.T) {
	_, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "tok")

	require.NoError(t, (&ServicesCmd{}).Run(t.Context(), globals))
	require.Contains(t, out.String(), "Database")

	out.Reset()
	require.NoError(t, (&IncidentsCmd{Status: "resolved"}).Run(t.Context(), globals))
	require.Contains(t, out.String(), "Old outage")
	require.NotContains(t, out.String(), "Replica lag")
	require.Contains(t, out.String(), "Total incidents: 1")

	out.Reset()
	require.NoError(t, (&NotificationsCmd{Unread: true}).Run(t.Context(), globals))
	require.Contains(t, out.String(), "* ")
	require.Contains(t, out.String(), "INCIDENT_CREATED")
}

func TestNotificationsCmd_MarkRead(t *testing.T) {
	api, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "tok")

	require.NoError(t, (&NotificationsCmd{MarkRead: true}).Run(t.Context(), globals))
	require.Equal(t, 1, api.readAll)
	require.Contains(t, out.String(), "Marked all notifications read.")
}

func TestLoginSavesProfile(t *testing.T) {
	_, srv := newFakeAPI(t)
	globals, out := newGlobals(t, srv.URL, "tok")

	require.NoError(t, (&LoginCmd{Name: "prod"}).Run(t.Context(), globals))
	require.Contains(t, out.String(), "Signed in as sam@example.com (ADMIN)")

	store, err := credentials.NewStore(globals.CredentialsDir)
	require.NoError(t, err)
	profile, err := store.GetDefault()
	require.NoError(t, err)
	require.Equal(t, "prod", profile.Name)
	require.Equal(t, strings.TrimRight(srv.URL, "/"), profile.ServerURL)

	// Later invocations use the saved profile without flags.
	out.Reset()
	later := &Globals{CredentialsDir: globals.CredentialsDir, Out: out}
	require.NoError(t, (&ServicesCmd{}).Run(t.Context(), later))
	require.Contains(t, out.String(), "Database")

	require.NoError(t, (&LogoutCmd{Name: "prod"}).Run(t.Context(), later))
	_, err = store.Get("prod")
	require.ErrorIs(t, err, credentials.ErrProfileNotFound)
}

func TestLoginRejectsBadToken(t *testing.T) {
	_, srv := newFakeAPI(t)

	globals, _ := newGlobals(t, srv.URL, "")
	require.ErrorContains(t, (&LoginCmd{Name: "prod"}).Run(t.Context(), globals), "--token")

	globals, _ = newGlobals(t, srv.URL, "wrong")
	require.ErrorContains(t, (&LoginCmd{Name: "prod"}).Run(t.Context(), globals), "Unauthorized")
}
