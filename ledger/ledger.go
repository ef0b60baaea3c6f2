// Package ledger defines the narrow boundary between CKBFS and the chain it
// stores files on: fetching a committed transaction by hash and committing a
// fully assembled one.
package ledger

import "context"

// Fetcher retrieves committed transactions.
//
// Contract:
// - FetchTransaction MUST return ErrNotFound when the hash is unknown.
// - Returned transactions MUST be treated as immutable by callers.
type Fetcher interface {
	FetchTransaction(ctx context.Context, hash TxHash) (*Transaction, error)
}

// Committer accepts fully assembled transactions.
//
// Contract:
// - Commit MUST be idempotent for byte-identical transactions.
// - Commit MUST reject a different transaction that hashes to an existing hash (ErrImmutable).
// - The returned hash MUST equal ComputeHash(tx).
type Committer interface {
	Commit(ctx context.Context, tx *Transaction) (TxHash, error)
}

// Ledger is a Fetcher that can also accept commits.
type Ledger interface {
	Fetcher
	Committer
	Has(ctx context.Context, hash TxHash) bool
}
