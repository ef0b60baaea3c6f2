// Package keys manages the owner keys that sign CKBFS transactions.
//
// API stability:
//
// Stable:
//   - Pure, deterministic primitives: signers built from seeds, lock-args
//     derivation and role-seed derivation.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). It is a local-first utility
//     for the devnet tooling and not part of the on-chain format.
package keys
