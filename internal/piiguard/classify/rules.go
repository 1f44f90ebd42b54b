package classify

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
)

// IPCategory marks fields holding an IPv4 or IPv6 address; the family is
// detected per value.
const IPCategory = "ip"

// negativeCategory holds exclusion rules in the rules document.
const negativeCategory = "Negative"

// PositiveRule marks matching field names as carrying PII of its category.
type PositiveRule struct {
	Regex       string `json:"regex"`
	Description string `json:"description,omitempty"`
}

// NegativeRule excludes matching field names even if a positive rule matches.
type NegativeRule struct {
	Regex  string `json:"regex"`
	Reason string `json:"reason"`
}

// Rules is the validated, uncompiled rules document. Category names are
// redact kind names ("email", "hwid", ...) or "ip".
type Rules struct {
	Categories map[string][]PositiveRule
	Negative   []NegativeRule
}

// Validate decodes and checks a rules document.
func Validate(r io.Reader) (*Rules, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode rules JSON: %w", err)
	}

	rules := &Rules{Categories: map[string][]PositiveRule{}}
	var categories []string

	for category, msg := range raw {
		if category == negativeCategory {
			var negatives []NegativeRule
			if err := json.Unmarshal(msg, &negatives); err != nil {
				return nil, nil, fmt.Errorf("decode Negative rules: %w", err)
			}
			for i, rule := range negatives {
				if rule.Regex == "" {
					return nil, nil, fmt.Errorf("Negative rule %d missing regex", i)
				}
				if _, err := regexp.Compile(rule.Regex); err != nil {
					return nil, nil, fmt.Errorf("Negative rule %d invalid regex: %w", i, err)
				}
				if rule.Reason == "" {
					return nil, nil, fmt.Errorf("Negative rule %d missing reason", i)
				}
			}
			rules.Negative = negatives
			continue
		}

		if category != IPCategory {
			if _, err := redact.ParseKind(category); err != nil {
				return nil, nil, fmt.Errorf("category %q: %w", category, err)
			}
		}

		var positives []PositiveRule
		if err := json.Unmarshal(msg, &positives); err != nil {
			return nil, nil, fmt.Errorf("decode %s rules: %w", category, err)
		}
		if len(positives) == 0 {
			return nil, nil, fmt.Errorf("category %q must not be empty", category)
		}
		for i, rule := range positives {
			if rule.Regex == "" {
				return nil, nil, fmt.Errorf("rule %d in %q missing regex", i, category)
			}
			if _, err := regexp.Compile(rule.Regex); err != nil {
				return nil, nil, fmt.Errorf("rule %d in %q invalid regex: %w", i, category, err)
			}
		}
		rules.Categories[category] = positives
		categories = append(categories, category)
	}

	if len(rules.Categories) == 0 {
		return nil, nil, fmt.Errorf("no pii categories found")
	}

	return rules, categories, nil
}
