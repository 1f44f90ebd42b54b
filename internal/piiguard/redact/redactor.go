// Package redact masks personally identifiable values for display.
//
// Redaction is one-way and deterministic: the same input and kind always
// produce the same output, and no call ever returns an error. Values that do
// not have the expected shape for their kind degrade to full redaction.
package redact

import (
	"strings"
	"unicode/utf8"
)

// Redactor masks a value according to its kind.
type Redactor interface {
	Redact(value string, kind Kind) string
}

type strategy func(value string) string

var strategies = map[Kind]strategy{
	Generic:         full,
	IPv4Address:     ipv4,
	IPv6Address:     ipv6,
	HardwareID:      hardwareID,
	Email:           email,
	PhoneNumber:     phone,
	PhysicalAddress: physicalAddress,
	Username:        username,
}

// PiiRedactor is the stateless Redactor. The zero value is ready to use.
type PiiRedactor struct{}

// Default is shared by callers that do not inject their own Redactor.
var Default Redactor = PiiRedactor{}

func (PiiRedactor) Redact(value string, kind Kind) string {
	return Redact(value, kind)
}

// Redact returns the masked form of value. Empty or all-whitespace input
// yields "". Unknown kinds are fully redacted.
func Redact(value string, kind Kind) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	fn, ok := strategies[kind]
	if !ok {
		return full(value)
	}
	return fn(value)
}

// full replaces every character with '*', keeping the length.
func full(value string) string {
	return strings.Repeat("*", utf8.RuneCountInString(value))
}
