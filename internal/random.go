package internal

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultSaltLength yields ~71 bits from the 62-char alphabet.
const DefaultSaltLength = 12

// NewSalt returns a random alphanumeric salt of the given length.
// There is no fallback source: if crypto/rand fails, so does this.
func NewSalt(length int) (string, error) {
	if length <= 0 {
		length = DefaultSaltLength
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(saltAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NewAuthCode returns a random lowercase hex code of the given length,
// suitable for out-of-band confirmation codes.
func NewAuthCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}

	raw := make([]byte, (length+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return hex.EncodeToString(raw)[:length], nil
}
