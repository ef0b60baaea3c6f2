// Package resolver rebuilds CKBFS files from the ledger.
//
// Starting from the transaction holding the latest cell record, it walks
// history backward (cell-data backlinks for V1/V2, the witness-embedded
// chain for V3), checks the resumable checksum at every hop and returns the
// content oldest first. The walk is iterative; chain length is driven by
// ledger data and is bounded only by Options.MaxHops.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
)

var ErrMissingFetcher = errors.New("resolver: missing transaction fetcher")

// Resolver reconstructs files. It holds no per-request state and is safe
// for concurrent use when its Fetcher is.
type Resolver struct {
	fetcher ledger.Fetcher
	opts    Options
	log     *logrus.Logger
}

func New(f ledger.Fetcher, opts Options) (*Resolver, error) {
	if f == nil {
		return nil, ErrMissingFetcher
	}
	opts = opts.withDefaults()
	if opts.CacheSize >= 0 {
		size := opts.CacheSize
		if size == 0 {
			size = ledger.DefaultCacheSize
		}
		cached, err := ledger.NewCachingFetcher(f, size)
		if err != nil {
			return nil, err
		}
		f = cached
	}
	return &Resolver{fetcher: f, opts: opts, log: opts.Logger}, nil
}

// Resolve reads the cell record at ref, detects its version and reconstructs
// the file it describes.
func (r *Resolver) Resolve(ctx context.Context, ref ckbfs.Ref) (*Result, error) {
	rec, err := r.Record(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.Reconstruct(ctx, ref.TxHash, rec)
}

// Record fetches and decodes the cell record at ref without following history.
func (r *Resolver) Record(ctx context.Context, ref ckbfs.Ref) (ckbfs.Record, error) {
	tx, err := r.fetch(ctx, ref.TxHash)
	if err != nil {
		return nil, err
	}
	data, ok := tx.OutputData(ref.Index)
	if !ok {
		return nil, ckbfs.NewError(ckbfs.KindNotFound, "CKBFS-CHAIN-005",
			fmt.Sprintf("transaction %s has no output %d", ref.TxHash, ref.Index))
	}
	return ckbfs.UnpackAny(data, r.opts.ProbeOrder)
}

// Reconstruct rebuilds the file whose latest record rec was committed in head.
func (r *Resolver) Reconstruct(ctx context.Context, head ledger.TxHash, rec ckbfs.Record) (*Result, error) {
	switch rec := rec.(type) {
	case ckbfs.RecordV1, ckbfs.RecordV2:
		return r.reconstructBacklinked(ctx, head, rec)
	case ckbfs.RecordV3:
		return r.reconstructChained(ctx, head, rec)
	default:
		return nil, ckbfs.NewError(ckbfs.KindInvalidArgument, "CKBFS-CELL-100", fmt.Sprintf("unsupported record type %T", rec))
	}
}

func (r *Resolver) fetch(ctx context.Context, hash ledger.TxHash) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := r.fetcher.FetchTransaction(ctx, hash)
	switch {
	case err == nil:
		return tx, nil
	case ledger.IsNotFound(err):
		return nil, ckbfs.WrapError(ckbfs.KindNotFound, "CKBFS-CHAIN-001", fmt.Sprintf("transaction %s not found", hash), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, ckbfs.WrapError(ckbfs.KindInternal, "CKBFS-CHAIN-010", fmt.Sprintf("fetch transaction %s", hash), err)
	}
}

func (r *Resolver) checkHops(n int) error {
	if r.opts.MaxHops > 0 && n > r.opts.MaxHops {
		return ckbfs.NewError(ckbfs.KindChainBroken, "CKBFS-CHAIN-003",
			fmt.Sprintf("chain exceeds %d hops", r.opts.MaxHops))
	}
	return nil
}
