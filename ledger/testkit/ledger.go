// Package testkit holds the conformance suite every ledger backend runs.
package testkit

import (
	"context"
	"testing"

	"xdao.co/ckbfs/ledger"
)

// NewLedger constructs a fresh, empty Ledger for a test.
// The returned Ledger MUST be isolated from other tests.
type NewLedger func(t *testing.T) ledger.Ledger

// SampleTransaction returns a small transaction whose hash depends on seed.
func SampleTransaction(seed byte) *ledger.Transaction {
	return &ledger.Transaction{
		Inputs: []ledger.OutPoint{{TxHash: ledger.TxHash{seed}, Index: 1}},
		Outputs: []ledger.CellOutput{{
			Capacity: 200_0000_0000,
			Lock:     ledger.Script{CodeHash: [32]byte{0xaa}, HashType: 1, Args: []byte{seed}},
		}},
		OutputsData: [][]byte{{seed, 0x01, 0x02}},
		Witnesses:   [][]byte{nil, []byte("CKBFS\x00hello")},
	}
}

func RunLedgerConformance(t *testing.T, newLedger NewLedger) {
	t.Helper()
	ctx := context.Background()

	t.Run("CommitFetchRoundTrip", func(t *testing.T) {
		l := newLedger(t)
		tx := SampleTransaction(1)

		hash, err := l.Commit(ctx, tx)
		if err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		want, err := ledger.ComputeHash(tx)
		if err != nil {
			t.Fatalf("ComputeHash failed: %v", err)
		}
		if hash != want {
			t.Fatalf("Commit hash mismatch: got %s want %s", hash, want)
		}

		got, err := l.FetchTransaction(ctx, hash)
		if err != nil {
			t.Fatalf("FetchTransaction failed: %v", err)
		}
		if !ledger.Equal(got, tx) {
			t.Fatalf("fetched transaction differs from committed one")
		}
	})

	t.Run("CommitIdempotent", func(t *testing.T) {
		l := newLedger(t)
		tx := SampleTransaction(2)

		h1, err := l.Commit(ctx, tx)
		if err != nil {
			t.Fatalf("Commit(1) failed: %v", err)
		}
		h2, err := l.Commit(ctx, tx)
		if err != nil {
			t.Fatalf("Commit(2) failed: %v", err)
		}
		if h1 != h2 {
			t.Fatalf("Commit not idempotent: %s vs %s", h1, h2)
		}
	})

	t.Run("RejectWitnessRewrite", func(t *testing.T) {
		l := newLedger(t)
		tx := SampleTransaction(3)
		if _, err := l.Commit(ctx, tx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		// Same hash (witnesses are not hashed), different bytes.
		tx.Witnesses = [][]byte{[]byte("rewritten")}
		if _, err := l.Commit(ctx, tx); err == nil {
			t.Fatalf("expected rewrite of committed transaction to fail")
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		l := newLedger(t)
		tx := SampleTransaction(4)
		hash, err := ledger.ComputeHash(tx)
		if err != nil {
			t.Fatalf("ComputeHash failed: %v", err)
		}

		if l.Has(ctx, hash) {
			t.Fatalf("Has returned true for missing transaction")
		}
		_, err = l.FetchTransaction(ctx, hash)
		if !ledger.IsNotFound(err) {
			t.Fatalf("FetchTransaction missing: got err=%v want ErrNotFound", err)
		}

		if _, err := l.Commit(ctx, tx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if !l.Has(ctx, hash) {
			t.Fatalf("Has returned false after Commit")
		}
	})
}
