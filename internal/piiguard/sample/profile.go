// Package sample generates fake connection log data for demos, local
// databases and tests. Nothing it produces belongs to a real person.
package sample

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

// Profile describes the data set to generate.
type Profile struct {
	// Seed makes output reproducible; 0 picks a random seed.
	Seed        uint64   `yaml:"seed"`
	Connections int      `yaml:"connections"`
	Players     int      `yaml:"players"`
	Servers     []string `yaml:"servers"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	// IPv6Ratio and DenyRatio are fractions in [0,1].
	IPv6Ratio float64 `yaml:"ipv6Ratio"`
	DenyRatio float64 `yaml:"denyRatio"`
	// Contact adds email, phone and home address fields to each record.
	Contact bool `yaml:"contact"`

	Output    string `yaml:"output"`
	SQLOutput string `yaml:"sqlOutput"`

	start, end time.Time
}

// DefaultProfile is used when no profile file is given.
func DefaultProfile() Profile {
	return Profile{
		Seed:        1,
		Connections: 100,
		Players:     20,
		Servers:     []string{"lizard", "salamander"},
		Start:       "2026-01-01",
		End:         "2026-02-01",
		IPv6Ratio:   0.2,
		DenyRatio:   0.1,
	}
}

// ReadProfile loads a YAML profile on top of DefaultProfile.
func ReadProfile(path string) (Profile, error) {
	logger.L().Debugw("Loading sample profile", "path", path)
	p := DefaultProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read sample profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse sample profile: %w", err)
	}
	return p, p.Validate()
}

// Validate checks the profile and resolves its date range.
func (p *Profile) Validate() error {
	if p.Connections < 0 {
		return fmt.Errorf("connections must not be negative")
	}
	if p.Players <= 0 {
		return fmt.Errorf("players must be positive")
	}
	if len(p.Servers) == 0 {
		return fmt.Errorf("at least one server is required")
	}
	for _, s := range p.Servers {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("server names must not be blank")
		}
	}
	if p.IPv6Ratio < 0 || p.IPv6Ratio > 1 || p.DenyRatio < 0 || p.DenyRatio > 1 {
		return fmt.Errorf("ratios must be between 0 and 1")
	}

	var err error
	if p.start, err = dateparse.ParseIn(p.Start, time.UTC); err != nil {
		return fmt.Errorf("invalid start %q: %w", p.Start, err)
	}
	if p.end, err = dateparse.ParseIn(p.End, time.UTC); err != nil {
		return fmt.Errorf("invalid end %q: %w", p.End, err)
	}
	if !p.start.Before(p.end) {
		return fmt.Errorf("start must be before end")
	}
	return nil
}
