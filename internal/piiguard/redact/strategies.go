package redact

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	hwidHead    = 8
	hwidTail    = 4
	hwidMinimum = 12

	phoneVisibleDigits = 4

	addressSentinel = "***"
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ipv4 keeps the first octet: 203.0.113.42 -> 203.*.*.*
func ipv4(value string) string {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return full(value)
	}

	octets := addr.As4()
	return fmt.Sprintf("%d.*.*.*", octets[0])
}

// ipv6 keeps the first 16 bits of the canonical address, however it was written.
func ipv6(value string) string {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is6() {
		return full(value)
	}

	b := addr.As16()
	return fmt.Sprintf("%02x%02x", b[0], b[1]) + strings.Repeat(":*", 7)
}

// hardwareID shows the first 8 and last 4 characters of the separator-free id.
func hardwareID(value string) string {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(value)

	runes := []rune(cleaned)
	if len(runes) <= hwidMinimum {
		return full(value)
	}

	return string(runes[:hwidHead]) + "..." + string(runes[len(runes)-hwidTail:])
}

// email keeps the first character of the local part and the whole domain.
func email(value string) string {
	if strings.Count(value, "@") != 1 {
		return full(value)
	}

	local, domain, _ := strings.Cut(value, "@")
	if local == "" {
		return full(value)
	}

	first, _ := utf8.DecodeRuneInString(local)
	return string(first) + "***@" + domain
}

// phone renders only the last four digits into a fixed template.
func phone(value string) string {
	var digits []byte
	for i := 0; i < len(value); i++ {
		if value[i] >= '0' && value[i] <= '9' {
			digits = append(digits, value[i])
		}
	}

	if len(digits) < phoneVisibleDigits {
		return full(value)
	}

	return "(***) ***-" + string(digits[len(digits)-phoneVisibleDigits:])
}

// physicalAddress reduces a comma separated address to "city, state".
// The heuristics are best effort; anything unrecognised becomes "***".
func physicalAddress(value string) string {
	var segments []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	n := len(segments)
	if n < 2 {
		return addressSentinel
	}

	last := segments[n-1]
	prev := segments[n-2]

	if zipPattern.MatchString(last) && n >= 3 {
		return segments[n-3] + ", " + prev
	}

	lastLen := utf8.RuneCountInString(last)
	prevLen := utf8.RuneCountInString(prev)
	if lastLen == 2 || lastLen == 5 || (prevLen >= 3 && prevLen <= 29) {
		return prev + ", " + last
	}

	return addressSentinel
}

// username keeps the first and last character.
func username(value string) string {
	runes := []rune(value)
	if len(runes) <= 2 {
		return full(value)
	}

	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
