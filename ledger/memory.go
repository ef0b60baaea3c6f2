package ledger

import (
	"context"
	"sync"
)

// Memory is an in-process ledger. It is used by tests, the devnet assembler
// and as the default backend of the CLI when nothing else is configured.
type Memory struct {
	mu  sync.RWMutex
	txs map[TxHash][]byte
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{txs: make(map[TxHash][]byte)}
}

func (m *Memory) Commit(ctx context.Context, tx *Transaction) (TxHash, error) {
	hash, err := ComputeHash(tx)
	if err != nil {
		return ZeroHash, err
	}
	b, err := Marshal(tx)
	if err != nil {
		return ZeroHash, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.txs[hash]; ok {
		if string(existing) != string(b) {
			return ZeroHash, ErrImmutable
		}
		return hash, nil
	}
	m.txs[hash] = b
	return hash, nil
}

func (m *Memory) FetchTransaction(ctx context.Context, hash TxHash) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	b, ok := m.txs[hash]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	// Decode a fresh copy so callers cannot mutate stored state.
	return Unmarshal(b)
}

func (m *Memory) Has(ctx context.Context, hash TxHash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txs[hash]
	return ok
}

// Len returns the number of committed transactions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
