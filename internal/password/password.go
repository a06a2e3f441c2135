// Package password derives the stored password digest.
//
// The credential store matches rows on (user_name, password_hash) directly,
// so the digest must be deterministic for a given pepper: argon2id keyed by
// the configured pepper instead of a per-row random salt.
package password

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Hasher turns plaintext passwords into stored digests.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher for pepper.
func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: []byte(pepper)}
}

// Hash returns the hex encoded argon2id digest of plain.
func (h *Hasher) Hash(plain string) string {
	key := argon2.IDKey([]byte(plain), h.pepper, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}
