package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// LockArgsSize is the length of the lock-script args derived from a public key.
const LockArgsSize = 20

// LockArgs returns blake2b-256(pub) truncated to LockArgsSize bytes, the
// value an owner lock script carries to name its key.
func LockArgs(pub []byte) []byte {
	sum := blake2b.Sum256(pub)
	out := make([]byte, LockArgsSize)
	copy(out, sum[:LockArgsSize])
	return out
}

// DeriveRoleSeed deterministically derives a role-specific seed from a root seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("xdao-ckbfs-keys-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	if len(sum) < SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, SeedSize)
	copy(out, sum[:SeedSize])
	return out, nil
}

// SeedSize is the seed length for both supported algorithms.
const SeedSize = ed25519.SeedSize
