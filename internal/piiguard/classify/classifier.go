// Package classify decides from a field name whether a value is PII and
// which redaction strategy applies to it.
package classify

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
)

//go:embed default_rules.json
var defaultRules []byte

// Class is the outcome of a positive match.
type Class struct {
	Category string
	Kind     redact.Kind
	// DetectIP means the value's address family selects the kind.
	DetectIP bool
}

type compiledCategory struct {
	class Class
	rules []*regexp.Regexp
}

type compiledNegative struct {
	regex  *regexp.Regexp
	reason string
}

// Classifier matches field names against compiled rules. It is immutable
// and safe for concurrent use.
type Classifier struct {
	categories []compiledCategory // sorted by category name
	negative   []compiledNegative
}

// Compile turns validated rules into a Classifier.
func Compile(rules *Rules) (*Classifier, error) {
	names := make([]string, 0, len(rules.Categories))
	for name := range rules.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Classifier{}
	for _, name := range names {
		class := Class{Category: name, DetectIP: name == IPCategory}
		if !class.DetectIP {
			kind, err := redact.ParseKind(name)
			if err != nil {
				return nil, err
			}
			class.Kind = kind
		}

		cc := compiledCategory{class: class}
		for i, rule := range rules.Categories[name] {
			re, err := regexp.Compile(rule.Regex)
			if err != nil {
				return nil, fmt.Errorf("failed to compile regex for category %s, rule %d (%s): %w", name, i, rule.Regex, err)
			}
			cc.rules = append(cc.rules, re)
		}
		c.categories = append(c.categories, cc)
	}

	for i, neg := range rules.Negative {
		re, err := regexp.Compile(neg.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile negative rule regex %d (%s): %w", i, neg.Regex, err)
		}
		c.negative = append(c.negative, compiledNegative{regex: re, reason: neg.Reason})
	}

	return c, nil
}

// Load reads, validates and compiles a rules file.
func Load(path string) (*Classifier, error) {
	logger.L().Debugw("Loading classification rules", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file %s: %w", path, err)
	}
	defer file.Close()

	rules, categories, err := Validate(file)
	if err != nil {
		return nil, fmt.Errorf("failed to validate rules: %w", err)
	}

	logger.L().Debugw("Classification rules validated", "categories", len(categories), "negatives", len(rules.Negative))

	return Compile(rules)
}

// Default returns the built-in rules for the game server's admin tables.
func Default() *Classifier {
	rules, _, err := Validate(bytes.NewReader(defaultRules))
	if err != nil {
		panic(fmt.Sprintf("classify: built-in rules invalid: %v", err))
	}
	c, err := Compile(rules)
	if err != nil {
		panic(fmt.Sprintf("classify: built-in rules invalid: %v", err))
	}
	return c
}

// Match classifies a field name. Negative rules win over positive ones.
func (c *Classifier) Match(field string) (Class, bool) {
	for _, neg := range c.negative {
		if neg.regex.MatchString(field) {
			return Class{}, false
		}
	}

	for _, cat := range c.categories {
		for _, re := range cat.rules {
			if re.MatchString(field) {
				return cat.class, true
			}
		}
	}
	return Class{}, false
}

// Categories lists the category names in match order.
func (c *Classifier) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.class.Category
	}
	return names
}
