// Package viewer decides, per request, whether PII is shown raw or redacted.
package viewer

import (
	"net/netip"
	"strings"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/stats"
)

// ShouldCensor combines the viewer's permission with their display
// preference. Viewers without PII access are always censored; viewers with
// access can still opt into censoring (e.g. while streaming).
func ShouldCensor(hasPiiRole, censorPreference bool) bool {
	return !hasPiiRole || censorPreference
}

// Presenter renders field values for one viewer.
type Presenter struct {
	censor   bool
	redactor redact.Redactor
}

// NewPresenter returns a Presenter. A nil redactor uses redact.Default.
func NewPresenter(censor bool, r redact.Redactor) *Presenter {
	if r == nil {
		r = redact.Default
	}
	return &Presenter{censor: censor, redactor: r}
}

func (p *Presenter) Censoring() bool {
	return p.censor
}

// Show returns value unchanged for uncensored viewers and redacted otherwise.
func (p *Presenter) Show(value string, kind redact.Kind) string {
	if !p.censor || strings.TrimSpace(value) == "" {
		return value
	}
	return p.redact(value, kind)
}

// ShowIP picks the IPv4 or IPv6 strategy from the address itself. Values
// that are not addresses are fully masked rather than shown raw.
func (p *Presenter) ShowIP(value string) string {
	if !p.censor || strings.TrimSpace(value) == "" {
		return value
	}

	addr, err := netip.ParseAddr(value)
	switch {
	case err != nil:
		return p.redact(value, redact.Generic)
	case addr.Is4():
		return p.redact(value, redact.IPv4Address)
	default:
		return p.redact(value, redact.IPv6Address)
	}
}

func (p *Presenter) redact(value string, kind redact.Kind) string {
	stats.RedactionsCounter.WithLabelValues(kind.String()).Inc()
	return p.redactor.Redact(value, kind)
}
