// Package identity defines caller identities for the ledger.
package identity

import (
	"fmt"
	"strings"
	"time"
)

// Address is a 20-byte hex identity ("0x" + 40 hex chars), stored lowercase.
// It is the identity every ledger operation is attributed to.
type Address string

// Zero is the unassigned sentinel.
const Zero Address = "0x0000000000000000000000000000000000000000"

// Parse validates and normalizes an address string.
func Parse(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("invalid address %q", s)
	}
	for _, c := range s[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid address %q", s)
		}
	}
	return Address(s), nil
}

// IsZero reports whether a is the unassigned sentinel or empty.
func (a Address) IsZero() bool {
	return a == "" || a == Zero
}

func (a Address) String() string { return string(a) }

// Identity is a registered participant with API-key credentials.
type Identity struct {
	Address   Address   `json:"address"`
	KeyPrefix string    `json:"key_prefix"`
	KeyHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
