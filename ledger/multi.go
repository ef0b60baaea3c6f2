package ledger

import (
	"context"
	"errors"
)

// MultiLedger provides deterministic, ordered fallback across multiple ledgers.
//
// Fetch order is the slice order in Backends; callers MUST supply a fixed order.
//
// Commit is defined to write only to the first backend.
type MultiLedger struct {
	Backends []Ledger
}

var _ Ledger = MultiLedger{}

func (m MultiLedger) Commit(ctx context.Context, tx *Transaction) (TxHash, error) {
	if len(m.Backends) == 0 {
		return ZeroHash, errors.New("ledger: MultiLedger has no backends")
	}
	return m.Backends[0].Commit(ctx, tx)
}

func (m MultiLedger) FetchTransaction(ctx context.Context, hash TxHash) (*Transaction, error) {
	for _, l := range m.Backends {
		tx, err := l.FetchTransaction(ctx, hash)
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

func (m MultiLedger) Has(ctx context.Context, hash TxHash) bool {
	for _, l := range m.Backends {
		if l.Has(ctx, hash) {
			return true
		}
	}
	return false
}
