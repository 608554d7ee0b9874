package orders

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	orderCodePrefix    = "ORD-"
	transferCodePrefix = "CK"
)

// newOrderCode returns the human-readable order reference, e.g. ORD-9F2A41C0.
func newOrderCode() (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return orderCodePrefix + suffix, nil
}

// newTransferCode returns the canonical bank transfer reference, e.g. CK7D01E3AA.
func newTransferCode() (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return transferCodePrefix + suffix, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// IsOrderCode reports whether ref looks like an order code rather than a uuid.
func IsOrderCode(ref string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(ref)), orderCodePrefix)
}
