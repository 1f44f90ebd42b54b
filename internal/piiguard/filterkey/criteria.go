package filterkey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TargetView names the page a filter applies to.
type TargetView int

const (
	Connections TargetView = iota
	Players
	Bans
	RoleBans
	Characters
	Logs
	Whitelist
)

var viewNames = []string{"connections", "players", "bans", "role_bans", "characters", "logs", "whitelist"}

func (v TargetView) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("view(%d)", int(v))
	}
	return viewNames[v]
}

func (v TargetView) Valid() bool {
	return v >= 0 && int(v) < len(viewNames)
}

// ParseTargetView resolves a case-insensitive view name such as "role_bans".
func ParseTargetView(s string) (TargetView, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range viewNames {
		if n == name || strings.ReplaceAll(n, "_", "") == name {
			return TargetView(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target view %q", s)
}

func (v TargetView) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid target view %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *TargetView) UnmarshalText(text []byte) error {
	parsed, err := ParseTargetView(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ConnectionTypeFilters gates which connection results the Connections page lists.
type ConnectionTypeFilters struct {
	ShowAccepted  bool `json:"show_accepted"`
	ShowBanned    bool `json:"show_banned"`
	ShowWhitelist bool `json:"show_whitelist"`
	ShowFull      bool `json:"show_full"`
	ShowPanic     bool `json:"show_panic"`
	ShowBabyJail  bool `json:"show_baby_jail"`
	ShowIPChecks  bool `json:"show_ip_checks"`
}

// AllConnectionTypes shows every category, matching the page defaults.
func AllConnectionTypes() ConnectionTypeFilters {
	return ConnectionTypeFilters{
		ShowAccepted:  true,
		ShowBanned:    true,
		ShowWhitelist: true,
		ShowFull:      true,
		ShowPanic:     true,
		ShowBabyJail:  true,
		ShowIPChecks:  true,
	}
}

// FilterCriteria is a saved filter intent. Search may hold PII (an IP, a
// hardware id, a username) and must never be logged or put into a URL.
//
// A FilterCriteria is treated as immutable once built: the Store keeps an
// encoded copy and every lookup decodes a fresh value.
type FilterCriteria struct {
	OwnerID           string                 `json:"owner_id"`
	TargetView        TargetView             `json:"target_view"`
	Search            string                 `json:"search,omitempty"`
	DateFrom          *time.Time             `json:"date_from,omitempty"`
	DateTo            *time.Time             `json:"date_to,omitempty"`
	ServerID          *int                   `json:"server_id,omitempty"`
	PlayerID          *uuid.UUID             `json:"player_id,omitempty"`
	ConnectionTypes   *ConnectionTypeFilters `json:"connection_types,omitempty"`
	AdditionalFilters map[string]any         `json:"additional_filters,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

var ErrInvalidCriteria = errors.New("invalid filter criteria")

// CriteriaOption sets an optional attribute in NewCriteria.
type CriteriaOption func(*FilterCriteria)

func WithSearch(search string) CriteriaOption {
	return func(c *FilterCriteria) { c.Search = search }
}

// WithDateRange sets either bound; a zero time leaves that bound open.
func WithDateRange(from, to time.Time) CriteriaOption {
	return func(c *FilterCriteria) {
		if !from.IsZero() {
			f := from.UTC()
			c.DateFrom = &f
		}
		if !to.IsZero() {
			t := to.UTC()
			c.DateTo = &t
		}
	}
}

func WithServerID(id int) CriteriaOption {
	return func(c *FilterCriteria) { c.ServerID = &id }
}

func WithPlayerID(id uuid.UUID) CriteriaOption {
	return func(c *FilterCriteria) { c.PlayerID = &id }
}

func WithConnectionTypes(types ConnectionTypeFilters) CriteriaOption {
	return func(c *FilterCriteria) { c.ConnectionTypes = &types }
}

// WithAdditional stores an extra JSON-compatible value. Numbers come back as float64.
func WithAdditional(key string, value any) CriteriaOption {
	return func(c *FilterCriteria) {
		if c.AdditionalFilters == nil {
			c.AdditionalFilters = make(map[string]any)
		}
		c.AdditionalFilters[key] = value
	}
}

// NewCriteria builds a criteria value stamped with the current UTC time.
func NewCriteria(ownerID string, view TargetView, opts ...CriteriaOption) FilterCriteria {
	c := FilterCriteria{
		OwnerID:    ownerID,
		TargetView: view,
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks user-supplied criteria before they are stored. The Store
// itself accepts any criteria.
func (c FilterCriteria) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidCriteria)
	}
	if !c.TargetView.Valid() {
		return fmt.Errorf("%w: unknown target view %d", ErrInvalidCriteria, int(c.TargetView))
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateFrom.After(*c.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", ErrInvalidCriteria)
	}
	return nil
}
