// Package badgerdb stores committed transactions in a Badger key-value store.
// Values are zstd-compressed deterministic encodings; keys are the
// transaction hash under a fixed prefix.
package badgerdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/ledger"
)

var keyPrefix = []byte("tx/")

type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in RAM (tests, throwaway devnets).
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	Logger     *logrus.Logger
}

// Ledger is a Badger-backed ledger.Ledger.
type Ledger struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log *logrus.Logger
}

var _ ledger.Ledger = (*Ledger)(nil)

func Open(opts Options) (*Ledger, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badgerdb: directory is required")
	}

	bopts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgerdb: open: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}

	opts.Logger.WithFields(logrus.Fields{"dir": opts.Dir, "in_memory": opts.InMemory}).Debug("badger ledger opened")
	return &Ledger{db: db, enc: enc, dec: dec, log: opts.Logger}, nil
}

func (l *Ledger) Close() error {
	l.dec.Close()
	if err := l.enc.Close(); err != nil {
		_ = l.db.Close()
		return err
	}
	return l.db.Close()
}

func key(hash ledger.TxHash) []byte {
	k := make([]byte, 0, len(keyPrefix)+ledger.HashSize)
	k = append(k, keyPrefix...)
	return append(k, hash[:]...)
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

	err = l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(hash))
		switch {
		case err == nil:
			existing, err := l.readValue(item)
			if err != nil {
				return err
			}
			if !bytes.Equal(existing, data) {
				return ledger.ErrImmutable
			}
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return txn.Set(key(hash), l.enc.EncodeAll(data, nil))
		default:
			return err
		}
	})
	if err != nil {
		return ledger.ZeroHash, err
	}
	l.log.WithField("tx", hash.String()).Debug("transaction stored")
	return hash, nil
}

func (l *Ledger) FetchTransaction(ctx context.Context, hash ledger.TxHash) (*ledger.Transaction, error) {
	var data []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(hash))
		if err != nil {
			return err
		}
		data, err = l.readValue(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tx, err := ledger.Unmarshal(data)
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
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(hash))
		return err
	})
	return err == nil
}

func (l *Ledger) readValue(item *badger.Item) ([]byte, error) {
	compressed, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	out, err := l.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("badgerdb: decompress %x: %w", item.Key(), err)
	}
	return out, nil
}
