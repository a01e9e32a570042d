package provision

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	NonceLength   = 4
)

// NewNonce returns a random 4 character [a-z0-9] suffix. Two runs collide
// with probability 1/36^4; nothing else keeps names unique.
func NewNonce() (string, error) {
	b := make([]byte, NonceLength)
	limit := big.NewInt(int64(len(nonceAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("could not generate nonce: %w", err)
		}
		b[i] = nonceAlphabet[n.Int64()]
	}
	return string(b), nil
}

func PolicyName(prefix, nonce string) string { return prefix + "-" + nonce }

// LocatorName is asset-{id}-outputs-locator-{nonce} for encoder output
// assets and {asset}-locator-{nonce} for anything else.
func LocatorName(asset, nonce string) string { return asset + "-locator-" + nonce }
