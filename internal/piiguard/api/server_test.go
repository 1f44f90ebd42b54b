package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/connlog"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/prefs"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

type fakePreferences struct {
	mu   sync.Mutex
	data map[string]prefs.UserPreference
	err  error
}

func newFakePreferences() *fakePreferences {
	return &fakePreferences{data: map[string]prefs.UserPreference{}}
}

func (f *fakePreferences) Get(_ context.Context, userID string) (prefs.UserPreference, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return prefs.UserPreference{}, false, f.err
	}
	p, ok := f.data[userID]
	return p, ok, nil
}

func (f *fakePreferences) CensorPii(ctx context.Context, userID string) (bool, error) {
	p, _, err := f.Get(ctx, userID)
	return p.CensorPii, err
}

func (f *fakePreferences) SetCensorPii(_ context.Context, userID string, censor bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.data[userID]
	p.UserID, p.CensorPii, p.LastUpdated = userID, censor, time.Now().UTC()
	f.data[userID] = p
	return nil
}

func (f *fakePreferences) SetDarkMode(_ context.Context, userID string, override *bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.data[userID]
	p.UserID, p.DarkModeOverride, p.LastUpdated = userID, override, time.Now().UTC()
	f.data[userID] = p
	return nil
}

type fakeFinder struct {
	filter   *connlog.ConnectionsFilter
	pageSize int
	offset   int
}

func (f *fakeFinder) Find(_ context.Context, filter *connlog.ConnectionsFilter, p *viewer.Presenter, pageSize, offset int) (connlog.Page, error) {
	f.filter, f.pageSize, f.offset = filter, pageSize, offset
	rows := []connlog.Connection{{ID: 1, UserName: "PlayerOne", Address: "192.168.1.100", HWID: "ABCD1234EFGH5678IJKL"}}
	connlog.Present(rows, p)
	return connlog.Page{Rows: rows}, nil
}

type testEnv struct {
	server *Server
	prefs  *fakePreferences
	finder *fakeFinder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.HTTPCfg{UserHeader: "X-Auth-User", RolesHeader: "X-Auth-Roles", PiiRole: "PII"}
	env := &testEnv{prefs: newFakePreferences(), finder: &fakeFinder{}}
	env.server = NewServer(cfg, Deps{
		Filters:     filterkey.NewStore(filterkey.NewMemoryStore(filterkey.DefaultIdleTimeout, 0)),
		Preferences: env.prefs,
		Connections: env.finder,
		PageSize:    25,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, user, roles, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-Auth-User", user)
	}
	if roles != "" {
		req.Header.Set("X-Auth-Roles", roles)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) createFilter(t *testing.T, user, body string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/filters", user, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	key, _ := decode(t, rec)["key"].(string)
	require.True(t, filterkey.ValidKey(key))
	return key
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/preferences", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	key := env.createFilter(t, "admin-a", `{"target_view":"bans","search":"203.0.113.9"}`)
	env.do(t, http.MethodGet, "/api/filters/"+key, "admin-a", "", "")

	rec := env.do(t, http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "piiguard_filter_key_operations_total")
	assert.Contains(t, body, `route="/api/filters/{key}"`)
	assert.NotContains(t, body, key)
	assert.NotContains(t, body, "203.0.113.9")
}

func TestFilterLifecycle(t *testing.T) {
	env := newTestEnv(t)
	key := env.createFilter(t, "admin-a", `{
		"owner_id": "someone-else",
		"target_view": "connections",
		"search": "192.168.1.100",
		"date_from": "2026-01-02",
		"server_id": 4,
		"connection_types": {"show_banned": true}
	}`)

	rec := env.do(t, http.MethodGet, "/api/filters/"+key, "admin-a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "admin-a", got["owner_id"], "owner comes from the caller, never the body")
	assert.Equal(t, "connections", got["target_view"])
	assert.Equal(t, "192.*.*.*", got["search"], "callers without the PII role get a redacted search")
	assert.Equal(t, true, got["has_search"])
	assert.Equal(t, "2026-01-02T00:00:00Z", got["date_from"])
	assert.EqualValues(t, 4, got["server_id"])

	// another admin sees the same answer as for a missing key
	foreign := env.do(t, http.MethodGet, "/api/filters/"+key, "admin-b", "", "")
	missing := env.do(t, http.MethodGet, "/api/filters/00000000000000000000000000000000", "admin-b", "", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.Code, foreign.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/filters/"+key+"/extend", "admin-b", "", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/api/filters/"+key+"/extend", "admin-a", "", "").Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/filters/"+key, "admin-a", "", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/filters/"+key, "admin-a", "", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/filters/"+key, "admin-a", "", "").Code)
}

func TestGetFilter_RedactsForCensoredViewers(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.prefs.SetCensorPii(context.Background(), "streamer", true))

	body := `{
		"target_view": "connections",
		"search": "203.0.113.42",
		"player_id": "5f0c3b7e-9a51-4c0e-8f43-2d7f4f3b9a11",
		"additional_filters": {"last_seen_user_name": "PlayerOne"}
	}`

	tests := []struct {
		name       string
		user       string
		roles      string
		search     string
		censored   bool
		rawVisible bool
	}{
		{"no_role", "mod", "Moderator", "203.*.*.*", true, false},
		{"pii_role", "admin", "PII", "203.0.113.42", false, true},
		{"pii_role_censor_pref", "streamer", "PII", "203.*.*.*", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := env.createFilter(t, tt.user, body)

			rec := env.do(t, http.MethodGet, "/api/filters/"+key, tt.user, tt.roles, "")
			require.Equal(t, http.StatusOK, rec.Code)
			raw := rec.Body.String()
			got := decode(t, rec)

			assert.Equal(t, tt.search, got["search"])
			assert.Equal(t, tt.censored, got["censored"])
			assert.Equal(t, true, got["has_search"])
			if tt.rawVisible {
				assert.Equal(t, "5f0c3b7e-9a51-4c0e-8f43-2d7f4f3b9a11", got["player_id"])
				assert.Contains(t, raw, "PlayerOne")
				return
			}
			assert.NotContains(t, raw, "203.0.113.42")
			assert.NotContains(t, raw, "5f0c3b7e")
			assert.NotContains(t, raw, "PlayerOne")
			assert.Nil(t, got["additional_filters"])
		})
	}
}

func TestCreateFilter_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"not_json", `{`},
		{"unknown_view", `{"target_view": "spaceships"}`},
		{"bad_date", `{"target_view": "players", "date_from": "not a date at all"}`},
		{"bad_player", `{"target_view": "players", "player_id": "nope"}`},
		{"inverted_range", `{"target_view": "logs", "date_from": "2026-02-01", "date_to": "2026-01-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/filters", "admin-a", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRedact(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.prefs.SetCensorPii(context.Background(), "streamer", true))

	tests := []struct {
		name     string
		user     string
		roles    string
		body     string
		value    string
		censored bool
	}{
		{"no_role", "mod", "Moderator", `{"value":"192.168.1.100","kind":"ip"}`, "192.*.*.*", true},
		{"pii_role", "admin", "Moderator, PII", `{"value":"192.168.1.100","kind":"ip"}`, "192.168.1.100", false},
		{"pii_role_censor_pref", "streamer", "PII", `{"value":"john.doe@example.com","kind":"email"}`, "j***@example.com", true},
		{"hwid", "mod", "", `{"value":"ABCD1234EFGH5678IJKL","kind":"hwid"}`, "ABCD1234...IJKL", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/redact", tt.user, tt.roles, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			got := decode(t, rec)
			assert.Equal(t, tt.value, got["value"])
			assert.Equal(t, tt.censored, got["censored"])
		})
	}

	rec := env.do(t, http.MethodPost, "/api/redact", "mod", "", `{"value":"x","kind":"ssn"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedact_PreferenceFailureCensors(t *testing.T) {
	env := newTestEnv(t)
	env.prefs.err = errors.New("database is locked")

	rec := env.do(t, http.MethodPost, "/api/redact", "admin", "PII", `{"value":"192.168.1.100","kind":"ipv4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "192.*.*.*", decode(t, rec)["value"])
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/preferences", "admin", "PII", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, false, got["censor_pii"])
	assert.Equal(t, "system", got["dark_mode"])
	assert.Equal(t, true, got["pii_access"])

	rec = env.do(t, http.MethodPut, "/api/preferences", "admin", "PII", `{"censor_pii": true, "dark_mode": "dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode(t, rec)
	assert.Equal(t, true, got["censor_pii"])
	assert.Equal(t, "dark", got["dark_mode"])
	assert.NotEmpty(t, got["last_updated"])

	rec = env.do(t, http.MethodPut, "/api/preferences", "admin", "PII", `{"dark_mode": "system"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode(t, rec)
	assert.Equal(t, true, got["censor_pii"], "omitted fields are unchanged")
	assert.Equal(t, "system", got["dark_mode"])

	rec = env.do(t, http.MethodPut, "/api/preferences", "admin", "PII", `{"dark_mode": "neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListConnections(t *testing.T) {
	env := newTestEnv(t)
	key := env.createFilter(t, "admin-a", `{"target_view":"connections","search":"10.0.0.5","server_id":2}`)

	rec := env.do(t, http.MethodGet, "/api/connections?fk="+key+"&page=2", "admin-a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.finder.filter)
	assert.True(t, env.finder.filter.HasHiddenSearch())
	assert.Empty(t, env.finder.filter.Search)
	require.NotNil(t, env.finder.filter.ServerID)
	assert.Equal(t, 2, *env.finder.filter.ServerID)
	assert.Equal(t, 25, env.finder.pageSize)
	assert.Equal(t, 50, env.finder.offset)
	assert.Contains(t, rec.Body.String(), `"192.*.*.*"`)

	// a key owned by someone else is ignored
	rec = env.do(t, http.MethodGet, "/api/connections?fk="+key, "admin-b", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.finder.filter.HasHiddenSearch())
	assert.Nil(t, env.finder.filter.ServerID)

	for _, page := range []string{"-1", "x", "100001", "9223372036854775807"} {
		rec = env.do(t, http.MethodGet, "/api/connections?page="+page, "admin-a", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "page=%s", page)
	}
}

func TestListConnections_RedactsForCensoredViewers(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		user   string
		roles  string
		shown  []string
		hidden []string
	}{
		{"no_role", "mod", "", []string{"192.*.*.*", "ABCD1234...IJKL"}, []string{"192.168.1.100", "ABCD1234EFGH5678IJKL", "203.0.113.42"}},
		{"pii_role", "admin", "PII", []string{"192.168.1.100", "ABCD1234EFGH5678IJKL"}, []string{"203.0.113.42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := env.createFilter(t, tt.user, `{"target_view":"connections","search":"203.0.113.42"}`)

			rec := env.do(t, http.MethodGet, "/api/connections?fk="+key, tt.user, tt.roles, "")
			require.Equal(t, http.StatusOK, rec.Code)
			require.True(t, env.finder.filter.HasHiddenSearch())

			body := rec.Body.String()
			for _, s := range tt.shown {
				assert.Contains(t, body, s)
			}
			// the filter key's search is applied server side and never echoed
			for _, s := range tt.hidden {
				assert.NotContains(t, body, s)
			}
		})
	}
}
