package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

// createFilterRequest is the body of POST /api/filters. The owner is
// always the caller; an owner in the body is ignored.
type createFilterRequest struct {
	TargetView        string                           `json:"target_view"`
	Search            string                           `json:"search"`
	DateFrom          string                           `json:"date_from"`
	DateTo            string                           `json:"date_to"`
	ServerID          *int                             `json:"server_id"`
	PlayerID          string                           `json:"player_id"`
	ConnectionTypes   *filterkey.ConnectionTypeFilters `json:"connection_types"`
	AdditionalFilters map[string]any                   `json:"additional_filters"`
}

type createFilterResponse struct {
	Key              string `json:"key"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// criteria builds the criteria for owner. Error messages never quote the
// submitted search or ids.
func (req createFilterRequest) criteria(owner string) (filterkey.FilterCriteria, error) {
	view, err := filterkey.ParseTargetView(req.TargetView)
	if err != nil {
		return filterkey.FilterCriteria{}, err
	}

	opts := []filterkey.CriteriaOption{filterkey.WithSearch(req.Search)}

	var from, to time.Time
	if strings.TrimSpace(req.DateFrom) != "" {
		if from, err = dateparse.ParseIn(req.DateFrom, time.UTC); err != nil {
			return filterkey.FilterCriteria{}, errors.New("date_from is not a date")
		}
	}
	if strings.TrimSpace(req.DateTo) != "" {
		if to, err = dateparse.ParseIn(req.DateTo, time.UTC); err != nil {
			return filterkey.FilterCriteria{}, errors.New("date_to is not a date")
		}
	}
	opts = append(opts, filterkey.WithDateRange(from, to))

	if req.ServerID != nil {
		opts = append(opts, filterkey.WithServerID(*req.ServerID))
	}
	if strings.TrimSpace(req.PlayerID) != "" {
		id, err := uuid.Parse(req.PlayerID)
		if err != nil {
			return filterkey.FilterCriteria{}, errors.New("player_id is not a uuid")
		}
		opts = append(opts, filterkey.WithPlayerID(id))
	}
	if req.ConnectionTypes != nil {
		opts = append(opts, filterkey.WithConnectionTypes(*req.ConnectionTypes))
	}
	for k, v := range req.AdditionalFilters {
		opts = append(opts, filterkey.WithAdditional(k, v))
	}

	c := filterkey.NewCriteria(owner, view, opts...)
	return c, c.Validate()
}

// filterResponse is what GET /api/filters/{key} shows the owner. Stored
// criteria never go out as-is: search and player id pass through the
// caller's presenter, and additional filters are withheld while censoring.
type filterResponse struct {
	OwnerID           string                           `json:"owner_id"`
	TargetView        filterkey.TargetView             `json:"target_view"`
	Search            string                           `json:"search,omitempty"`
	HasSearch         bool                             `json:"has_search"`
	DateFrom          *time.Time                       `json:"date_from,omitempty"`
	DateTo            *time.Time                       `json:"date_to,omitempty"`
	ServerID          *int                             `json:"server_id,omitempty"`
	PlayerID          string                           `json:"player_id,omitempty"`
	ConnectionTypes   *filterkey.ConnectionTypeFilters `json:"connection_types,omitempty"`
	AdditionalFilters map[string]any                   `json:"additional_filters,omitempty"`
	Censored          bool                             `json:"censored"`
	CreatedAt         time.Time                        `json:"created_at"`
}

func presentCriteria(c filterkey.FilterCriteria, p *viewer.Presenter) filterResponse {
	resp := filterResponse{
		OwnerID:         c.OwnerID,
		TargetView:      c.TargetView,
		HasSearch:       strings.TrimSpace(c.Search) != "",
		DateFrom:        c.DateFrom,
		DateTo:          c.DateTo,
		ServerID:        c.ServerID,
		ConnectionTypes: c.ConnectionTypes,
		Censored:        p.Censoring(),
		CreatedAt:       c.CreatedAt,
	}
	// searches are mostly addresses; anything else is masked whole
	resp.Search = p.ShowIP(c.Search)
	if c.PlayerID != nil {
		resp.PlayerID = p.Show(c.PlayerID.String(), redact.Generic)
	}
	if !p.Censoring() {
		resp.AdditionalFilters = c.AdditionalFilters
	}
	return resp
}

// CreateFilter handles POST /api/filters
func (s *Server) CreateFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req createFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	criteria, err := req.criteria(id.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := s.deps.Filters.Create(r.Context(), criteria)
	if err != nil {
		s.log.Errorw("Failed to create filter key", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, createFilterResponse{
		Key:              key,
		ExpiresInSeconds: int(s.deps.Filters.IdleTimeout() / time.Second),
	})
}

// GetFilter handles GET /api/filters/{key}. Unknown, expired and foreign
// keys all answer 404. The search is redacted unless the caller may see PII.
func (s *Server) GetFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	key := mux.Vars(r)["key"]

	criteria, ok, err := s.deps.Filters.Get(r.Context(), key, id.UserID)
	if err != nil {
		s.log.Errorw("Failed to resolve filter key", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "filter key not found")
		return
	}
	writeJSON(w, http.StatusOK, presentCriteria(criteria, s.presenter(r)))
}

// ExtendFilter handles POST /api/filters/{key}/extend
func (s *Server) ExtendFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	key := mux.Vars(r)["key"]

	ok, err := s.deps.Filters.Extend(r.Context(), key, id.UserID)
	if err != nil {
		s.log.Errorw("Failed to extend filter key", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "filter key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFilter handles DELETE /api/filters/{key}
func (s *Server) RemoveFilter(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if err := s.deps.Filters.Remove(r.Context(), key); err != nil {
		s.log.Errorw("Failed to remove filter key", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
