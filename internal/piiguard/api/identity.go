package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/stats"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the caller as asserted by the upstream auth proxy.
type Identity struct {
	UserID string
	Roles  []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IdentityFromContext returns the identity stored by the identify middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// identify rejects requests without a user header and stores the caller's
// Identity in the request context. Roles are comma separated.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(s.cfg.UserHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		var roles []string
		for _, role := range strings.Split(r.Header.Get(s.cfg.RolesHeader), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: userID, Roles: roles})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequests logs and counts requests by route template. Raw paths and
// query strings are left out; they can carry keys and search terms.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		stats.HttpRequestsTotalCounter.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		stats.HttpResponseTimeSecondsHist.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.Debugw("HTTP request", "method", r.Method, "route", route, "status", rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
