// Package pairid derives deterministic pair identifiers.
package pairid

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// ForPair computes a deterministic pair id from the canonical ticker tuple.
// Formula: base58(SHA256(left|right)). The same two instruments always map
// to the same id, so get-or-create never needs a lookup-then-insert race.
func ForPair(left, right string) string {
	hash := sha256.Sum256([]byte(left + "|" + right))
	return base58.Encode(hash[:])
}
