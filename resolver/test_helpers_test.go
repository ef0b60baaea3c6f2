package resolver

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// commitRecord commits a transaction whose output 0 carries rec and whose
// witnesses are ws. A distinct seed keeps otherwise-equal transactions apart.
func commitRecord(t *testing.T, l ledger.Ledger, seed byte, rec ckbfs.Record, ws [][]byte) ledger.TxHash {
	t.Helper()
	data, err := ckbfs.Pack(rec)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	tx := &ledger.Transaction{
		Inputs:      []ledger.OutPoint{{TxHash: ledger.TxHash{seed}, Index: 0}},
		Outputs:     []ledger.CellOutput{{Capacity: 1, Lock: ledger.Script{Args: []byte{seed}}}},
		OutputsData: [][]byte{data},
		Witnesses:   ws,
	}
	h, err := l.Commit(context.Background(), tx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return h
}

// selfHash returns the hash a transaction will have, so witnesses can
// reference it before it is committed.
func selfHash(t *testing.T, seed byte, rec ckbfs.Record) ledger.TxHash {
	t.Helper()
	data, err := ckbfs.Pack(rec)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	h, err := ledger.ComputeHash(&ledger.Transaction{
		Inputs:      []ledger.OutPoint{{TxHash: ledger.TxHash{seed}, Index: 0}},
		Outputs:     []ledger.CellOutput{{Capacity: 1, Lock: ledger.Script{Args: []byte{seed}}}},
		OutputsData: [][]byte{data},
	})
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	return h
}

func newResolver(t *testing.T, l ledger.Fetcher, opts Options) *Resolver {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	r, err := New(l, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}
