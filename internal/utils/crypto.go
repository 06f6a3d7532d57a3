package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeDigits = "0123456789"

// GenerateActivationCode returns a numeric code of the given length. Each
// digit is drawn independently and uniformly from a cryptographically secure
// source so observed codes reveal nothing about future ones.
func GenerateActivationCode(length int) (string, error) {
	buf := make([]byte, length)
	bound := big.NewInt(int64(len(codeDigits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, bound)
		if err != nil {
			return "", fmt.Errorf("failed to draw random digit: %w", err)
		}
		buf[i] = codeDigits[n.Int64()]
	}
	return string(buf), nil
}
