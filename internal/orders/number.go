package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// orderNumberAlphabet omits easily-confused characters (0/O, 1/I).
const orderNumberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const orderNumberSuffixLen = 6

// GenerateOrderNumber returns a human-readable candidate like
// GL-20260831-7KQ2XM. Uniqueness is enforced by the orders table; callers
// retry with a fresh candidate on a unique violation.
func GenerateOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, orderNumberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("GL-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
