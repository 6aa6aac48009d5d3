package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies a caller: administrator, beneficiary or donor.
// Addresses are stored in their canonical lower-case 0x-prefixed form.
type Address string

// ZeroAddress is the null identity. It can never be a beneficiary.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

const addressHexLen = 40

// ParseAddress validates and canonicalizes a 20-byte hex address.
func ParseAddress(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || !strings.EqualFold(s[:2], "0x") {
		return "", fmt.Errorf("address %q: missing 0x prefix", raw)
	}
	body := s[2:]
	if len(body) != addressHexLen {
		return "", fmt.Errorf("address %q: want %d hex digits, got %d", raw, addressHexLen, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("address %q: %w", raw, err)
	}
	return Address("0x" + strings.ToLower(body)), nil
}

// IsZero reports whether a is unset or the null identity.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string { return string(a) }
