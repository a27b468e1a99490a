package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizeID renders an address or object id in the full lowercase 32 byte
// hex form the ledger uses in type tags and event payloads.
func NormalizeID(id string) (string, error) {
	raw := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(id), "0x"), "0X"))
	if raw == "" {
		return "", fmt.Errorf("id is empty")
	}
	if len(raw) > 64 {
		return "", fmt.Errorf("id %q is longer than 32 bytes", id)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return "", fmt.Errorf("id %q: %w", id, err)
	}
	return hexutil.Encode(common.LeftPadBytes(b, 32)), nil
}

// SameID reports whether a and b name the same object, ignoring short forms
// and case. Malformed ids compare by exact text.
func SameID(a, b string) bool {
	if a == b {
		return true
	}
	na, errA := NormalizeID(a)
	nb, errB := NormalizeID(b)
	if errA != nil || errB != nil {
		return false
	}
	return na == nb
}
