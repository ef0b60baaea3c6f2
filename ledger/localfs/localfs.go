package localfs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"xdao.co/ckbfs/cidutil"
	"xdao.co/ckbfs/ledger"
)

// Ledger is a local filesystem-backed transaction store.
//
// Transactions are stored immutably, one file per transaction, named by the
// CIDv1 of their hash. Reads recompute the hash and reject files that no
// longer match their name.
type Ledger struct {
	root string
}

var _ ledger.Ledger = (*Ledger)(nil)

// New constructs a filesystem ledger rooted at root. The directory will be created if needed.
func New(root string) (*Ledger, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Ledger{root: root}, nil
}

func (l *Ledger) Commit(ctx context.Context, tx *ledger.Transaction) (ledger.TxHash, error) {
	hash, err := ledger.ComputeHash(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	data, err := ledger.Marshal(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}

	path, err := l.pathFor(hash)
	if err != nil {
		return ledger.ZeroHash, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ledger.ZeroHash, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := os.ReadFile(path)
			if rerr != nil || !bytes.Equal(existing, data) {
				return ledger.ZeroHash, ledger.ErrImmutable
			}
			return hash, nil
		}
		return ledger.ZeroHash, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return ledger.ZeroHash, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return ledger.ZeroHash, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return ledger.ZeroHash, err
	}
	return hash, nil
}

func (l *Ledger) FetchTransaction(ctx context.Context, hash ledger.TxHash) (*ledger.Transaction, error) {
	path, err := l.pathFor(hash)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	tx, err := ledger.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	got, err := ledger.ComputeHash(tx)
	if err != nil {
		return nil, err
	}
	if got != hash {
		return nil, ledger.ErrHashMismatch
	}
	return tx, nil
}

func (l *Ledger) Has(ctx context.Context, hash ledger.TxHash) bool {
	path, err := l.pathFor(hash)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (l *Ledger) pathFor(hash ledger.TxHash) (string, error) {
	id, err := cidutil.TxCID(hash)
	if err != nil {
		return "", err
	}
	s := id.String()
	// CID strings share a multibase/version prefix, so shard on the tail.
	return filepath.Join(l.root, s[len(s)-2:], s), nil
}
