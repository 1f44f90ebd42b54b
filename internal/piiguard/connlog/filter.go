// Package connlog queries the game server's connection log for the
// Connections page and renders rows for the current viewer.
package connlog

import (
	"strings"
	"time"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
)

// DenyReason mirrors the game server's ConnectionDenyReason column values.
type DenyReason int

const (
	DenyBan DenyReason = iota
	DenyWhitelist
	DenyFull
	DenyPanic
	DenyBabyJail
	DenyIPChecks
)

func (d DenyReason) String() string {
	switch d {
	case DenyBan:
		return "ban"
	case DenyWhitelist:
		return "whitelist"
	case DenyFull:
		return "full"
	case DenyPanic:
		return "panic"
	case DenyBabyJail:
		return "baby_jail"
	case DenyIPChecks:
		return "ip_checks"
	}
	return "unknown"
}

// ConnectionsFilter is the Connections page filter form.
//
// Search is the visible search box. A search carried in by a filter key is
// held in hiddenSearch instead so it is never echoed back to the page.
type ConnectionsFilter struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	ServerID *int

	ShowAccepted  bool
	ShowBanned    bool
	ShowWhitelist bool
	ShowFull      bool
	ShowPanic     bool
	ShowBabyJail  bool
	ShowIPChecks  bool

	hiddenSearch string
}

// NewConnectionsFilter returns the page default: every connection type shown.
func NewConnectionsFilter() *ConnectionsFilter {
	return &ConnectionsFilter{
		ShowAccepted:  true,
		ShowBanned:    true,
		ShowWhitelist: true,
		ShowFull:      true,
		ShowPanic:     true,
		ShowBabyJail:  true,
		ShowIPChecks:  true,
	}
}

// ApplyCriteria copies resolved filter key criteria onto the form. Unset
// criteria leave the form untouched.
func (f *ConnectionsFilter) ApplyCriteria(c filterkey.FilterCriteria) {
	if strings.TrimSpace(c.Search) != "" {
		f.hiddenSearch = c.Search
	} else if c.PlayerID != nil {
		f.hiddenSearch = c.PlayerID.String()
	}
	if c.DateFrom != nil {
		from := *c.DateFrom
		f.DateFrom = &from
	}
	if c.DateTo != nil {
		to := *c.DateTo
		f.DateTo = &to
	}
	if c.ServerID != nil {
		id := *c.ServerID
		f.ServerID = &id
	}
	if ct := c.ConnectionTypes; ct != nil {
		f.ShowAccepted = ct.ShowAccepted
		f.ShowBanned = ct.ShowBanned
		f.ShowWhitelist = ct.ShowWhitelist
		f.ShowFull = ct.ShowFull
		f.ShowPanic = ct.ShowPanic
		f.ShowBabyJail = ct.ShowBabyJail
		f.ShowIPChecks = ct.ShowIPChecks
	}
}

// HasHiddenSearch reports whether a filter key search is active.
func (f *ConnectionsFilter) HasHiddenSearch() bool {
	return strings.TrimSpace(f.hiddenSearch) != ""
}

// ClearHiddenSearch drops the filter key search, e.g. when the viewer types
// a search of their own.
func (f *ConnectionsFilter) ClearHiddenSearch() {
	f.hiddenSearch = ""
}

func (f *ConnectionsFilter) denyReasons() (acceptNull bool, reasons []int64) {
	acceptNull = f.ShowAccepted
	add := func(show bool, d DenyReason) {
		if show {
			reasons = append(reasons, int64(d))
		}
	}
	add(f.ShowBanned, DenyBan)
	add(f.ShowWhitelist, DenyWhitelist)
	add(f.ShowFull, DenyFull)
	add(f.ShowPanic, DenyPanic)
	add(f.ShowBabyJail, DenyBabyJail)
	add(f.ShowIPChecks, DenyIPChecks)
	return acceptNull, reasons
}
