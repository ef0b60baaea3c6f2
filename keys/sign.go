package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// Signer signs transaction digests for an owner lock.
type Signer interface {
	Algorithm() string
	PublicKey() []byte
	SignatureSize() int
	Sign(message []byte) ([]byte, error)
}

// NewSigner builds a signer for alg from a 32-byte seed.
func NewSigner(alg string, seed []byte) (Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(seed))
	}
	switch strings.ToLower(alg) {
	case "", AlgEd25519:
		return ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
	case AlgDilithium3:
		var s [mode3.SeedSize]byte
		copy(s[:], seed)
		pk, sk := mode3.NewKeyFromSeed(&s)
		return dilithium3Signer{pub: pk, priv: sk}, nil
	default:
		return nil, fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
}

// ed25519 signs sha256(message).
type ed25519Signer struct{ priv ed25519.PrivateKey }

func (s ed25519Signer) Algorithm() string  { return AlgEd25519 }
func (s ed25519Signer) SignatureSize() int { return ed25519.SignatureSize }
func (s ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.priv.Public().(ed25519.PublicKey)...)
}

func (s ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ed25519.Sign(s.priv, digest[:]), nil
}

// dilithium3 signs sha3-256(message).
type dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

func (s dilithium3Signer) Algorithm() string  { return AlgDilithium3 }
func (s dilithium3Signer) SignatureSize() int { return mode3.SignatureSize }
func (s dilithium3Signer) PublicKey() []byte  { return s.pub.Bytes() }

func (s dilithium3Signer) Sign(message []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, fmt.Errorf("missing private key")
	}
	digest := sha3.Sum256(message)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest[:], sig)
	return sig, nil
}

// Verify checks a signature produced by a Signer of the given algorithm.
func Verify(alg string, pub, message, sig []byte) bool {
	switch strings.ToLower(alg) {
	case "", AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return false
		}
		digest := sha256.Sum256(message)
		return ed25519.Verify(pub, digest[:], sig)
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false
		}
		digest := sha3.Sum256(message)
		return mode3.Verify(&pk, digest[:], sig)
	default:
		return false
	}
}

// OwnerKeyString renders a public key as "<alg>:<base64>".
func OwnerKeyString(s Signer) string {
	return s.Algorithm() + ":" + base64.StdEncoding.EncodeToString(s.PublicKey())
}
