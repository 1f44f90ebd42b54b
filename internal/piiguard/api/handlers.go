package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/connlog"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
)

type redactRequest struct {
	Value string `json:"value"`
	// Kind is a redact kind name, or "ip" to pick the family from the value.
	Kind string `json:"kind"`
}

type redactResponse struct {
	Value    string `json:"value"`
	Censored bool   `json:"censored"`
}

// Redact handles POST /api/redact. The value comes back raw when the
// caller may see PII and has not asked for censoring.
func (s *Server) Redact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := s.presenter(r)
	if strings.EqualFold(strings.TrimSpace(req.Kind), classify.IPCategory) {
		writeJSON(w, http.StatusOK, redactResponse{Value: p.ShowIP(req.Value), Censored: p.Censoring()})
		return
	}

	kind, err := redact.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, redactResponse{Value: p.Show(req.Value, kind), Censored: p.Censoring()})
}

type preferencesResponse struct {
	CensorPii bool `json:"censor_pii"`
	// DarkMode is "dark", "light" or "system".
	DarkMode    string     `json:"dark_mode"`
	PiiAccess   bool       `json:"pii_access"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

type updatePreferencesRequest struct {
	CensorPii *bool   `json:"censor_pii"`
	DarkMode  *string `json:"dark_mode"`
}

func darkModeName(override *bool) string {
	switch {
	case override == nil:
		return "system"
	case *override:
		return "dark"
	default:
		return "light"
	}
}

func parseDarkMode(s string) (*bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return nil, true
	case "dark":
		v := true
		return &v, true
	case "light":
		v := false
		return &v, true
	}
	return nil, false
}

// GetPreferences handles GET /api/preferences
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	if s.deps.Preferences == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences are not configured")
		return
	}

	pref, ok, err := s.deps.Preferences.Get(r.Context(), id.UserID)
	if err != nil {
		s.log.Errorw("Failed to load preferences", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := preferencesResponse{
		DarkMode:  "system",
		PiiAccess: id.HasRole(s.cfg.PiiRole),
	}
	if ok {
		resp.CensorPii = pref.CensorPii
		resp.DarkMode = darkModeName(pref.DarkModeOverride)
		updated := pref.LastUpdated
		resp.LastUpdated = &updated
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdatePreferences handles PUT /api/preferences. Omitted fields are left
// unchanged.
func (s *Server) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	if s.deps.Preferences == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences are not configured")
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var darkMode *bool
	if req.DarkMode != nil {
		var ok bool
		if darkMode, ok = parseDarkMode(*req.DarkMode); !ok {
			writeError(w, http.StatusBadRequest, "dark_mode must be dark, light or system")
			return
		}
	}

	if req.CensorPii != nil {
		if err := s.deps.Preferences.SetCensorPii(r.Context(), id.UserID, *req.CensorPii); err != nil {
			s.log.Errorw("Failed to save censor preference", "user_id", id.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	if req.DarkMode != nil {
		if err := s.deps.Preferences.SetDarkMode(r.Context(), id.UserID, darkMode); err != nil {
			s.log.Errorw("Failed to save dark mode preference", "user_id", id.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	s.GetPreferences(w, r)
}

// maxPage bounds the page parameter so page*PageSize cannot overflow.
const maxPage = 100000

// ListConnections handles GET /api/connections?fk=&search=&page=. A filter
// key that does not resolve for the caller is ignored, as if absent.
func (s *Server) ListConnections(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	q := r.URL.Query()

	f := connlog.NewConnectionsFilter()
	if fk := q.Get("fk"); strings.TrimSpace(fk) != "" {
		criteria, ok, err := s.deps.Filters.Get(r.Context(), fk, id.UserID)
		if err != nil {
			s.log.Errorw("Failed to resolve filter key", "user_id", id.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ok {
			f.ApplyCriteria(criteria)
		}
	}
	f.Search = q.Get("search")

	page := 0
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxPage {
			writeError(w, http.StatusBadRequest, "page must be an integer between 0 and "+strconv.Itoa(maxPage))
			return
		}
		page = n
	}

	result, err := s.deps.Connections.Find(r.Context(), f, s.presenter(r), s.deps.PageSize, page*s.deps.PageSize)
	if err != nil {
		s.log.Errorw("Failed to load connections", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
