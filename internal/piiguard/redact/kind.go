package redact

import (
	"fmt"
	"strings"
)

// Kind identifies the semantic type of a PII value and selects its redaction strategy.
type Kind int

const (
	Generic Kind = iota
	IPv4Address
	IPv6Address
	HardwareID
	Email
	PhoneNumber
	PhysicalAddress
	Username
)

var kindNames = map[Kind]string{
	Generic:         "generic",
	IPv4Address:     "ipv4",
	IPv6Address:     "ipv6",
	HardwareID:      "hwid",
	Email:           "email",
	PhoneNumber:     "phone",
	PhysicalAddress: "address",
	Username:        "username",
}

// aliases accepted by ParseKind in addition to the canonical names
var kindAliases = map[string]Kind{
	"ipv4address":      IPv4Address,
	"ipv6address":      IPv6Address,
	"hardware_id":      HardwareID,
	"hardwareid":       HardwareID,
	"phone_number":     PhoneNumber,
	"phonenumber":      PhoneNumber,
	"physical_address": PhysicalAddress,
	"physicaladdress":  PhysicalAddress,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{Generic, IPv4Address, IPv6Address, HardwareID, Email, PhoneNumber, PhysicalAddress, Username}
}

// ParseKind resolves a case-insensitive kind name.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return Generic, fmt.Errorf("unknown pii kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
