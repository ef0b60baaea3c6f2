package ledger

import (
	"context"
	"fmt"
)

// NamedLedger associates a Ledger with a stable backend name.
type NamedLedger struct {
	Name   string
	Ledger Ledger
}

// ReplicatingLedger commits to all configured backends.
//
// Fetches fall back in order. Commits go to all backends and require every
// returned hash to match the locally computed one (otherwise ErrHashMismatch).
type ReplicatingLedger struct {
	Backends []NamedLedger
}

var _ Ledger = ReplicatingLedger{}

// CommitAll commits tx to every backend and returns the per-backend hashes.
func (r ReplicatingLedger) CommitAll(ctx context.Context, tx *Transaction) (TxHash, map[string]TxHash, error) {
	want, err := ComputeHash(tx)
	if err != nil {
		return ZeroHash, nil, err
	}
	if len(r.Backends) == 0 {
		return ZeroHash, nil, fmt.Errorf("ledger: ReplicatingLedger has no backends")
	}

	out := make(map[string]TxHash, len(r.Backends))
	for _, b := range r.Backends {
		if b.Ledger == nil {
			return ZeroHash, nil, fmt.Errorf("ledger: nil ledger for backend %q", b.Name)
		}
		got, err := b.Ledger.Commit(ctx, tx)
		if err != nil {
			return ZeroHash, out, fmt.Errorf("ledger: commit to %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if got != want {
			return ZeroHash, out, ErrHashMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingLedger) Commit(ctx context.Context, tx *Transaction) (TxHash, error) {
	hash, _, err := r.CommitAll(ctx, tx)
	return hash, err
}

func (r ReplicatingLedger) FetchTransaction(ctx context.Context, hash TxHash) (*Transaction, error) {
	for _, b := range r.Backends {
		if b.Ledger == nil {
			continue
		}
		tx, err := b.Ledger.FetchTransaction(ctx, hash)
		if err == nil {
			return tx, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingLedger) Has(ctx context.Context, hash TxHash) bool {
	for _, b := range r.Backends {
		if b.Ledger != nil && b.Ledger.Has(ctx, hash) {
			return true
		}
	}
	return false
}
