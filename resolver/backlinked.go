package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/compliance"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/witness"
)

// segment is one transaction's share of a V1/V2 file: the slots to read and
// the checksum the file must have once they are appended.
type segment struct {
	tx      ledger.TxHash
	indexes []uint32
	sum     uint32
}

func (r *Resolver) reconstructBacklinked(ctx context.Context, head ledger.TxHash, rec ckbfs.Record) (*Result, error) {
	var segs []segment
	switch rec := rec.(type) {
	case ckbfs.RecordV1:
		for _, bl := range rec.BackLinks {
			segs = append(segs, segment{tx: bl.TxHash, indexes: []uint32{bl.Index}, sum: bl.Checksum})
		}
		segs = append(segs, segment{tx: head, indexes: []uint32{rec.Index}, sum: rec.Checksum})
	case ckbfs.RecordV2:
		for _, bl := range rec.BackLinks {
			segs = append(segs, segment{tx: bl.TxHash, indexes: bl.Indexes, sum: bl.Checksum})
		}
		segs = append(segs, segment{tx: head, indexes: rec.Indexes, sum: rec.Checksum})
	}
	if err := r.checkHops(len(segs)); err != nil {
		return nil, err
	}

	res := &Result{Record: rec, Version: rec.Version(), Checksum: rec.Sum(), Verified: true}
	state := checksum.Initial
	var content []byte

	// Segments are stored oldest first, so walking them in order yields the
	// file front to back and lets the checksum run forward.
	for _, seg := range segs {
		tx, err := r.fetch(ctx, seg.tx)
		if err != nil {
			return nil, err
		}
		part, read, warns, err := r.readSlots(ctx, seg.tx, tx, seg.indexes)
		if err != nil {
			return nil, err
		}
		if len(warns) > 0 {
			res.Verified = false
			res.Warnings = append(res.Warnings, warns...)
		}
		content = append(content, part...)
		res.Hops = append(res.Hops, Hop{TxHash: seg.tx, Indexes: read, Bytes: len(part)})
		r.log.WithFields(logrus.Fields{"tx": seg.tx.String(), "slots": len(read), "bytes": len(part)}).Debug("ckbfs hop")

		state = checksum.Resume(state, part)
		if state != seg.sum {
			err := ckbfs.NewError(ckbfs.KindChecksumMismatch, "CKBFS-SUM-001",
				fmt.Sprintf("checksum after %s is %#08x, record says %#08x", seg.tx, state, seg.sum))
			if r.opts.Mode == compliance.Strict {
				return nil, err
			}
			res.Verified = false
			res.Warnings = append(res.Warnings, Warning{TxHash: seg.tx, RuleID: "CKBFS-SUM-001", Message: err.Error()})
			r.log.WithFields(logrus.Fields{"tx": seg.tx.String(), "got": state, "want": seg.sum}).Warn("ckbfs checksum mismatch")
			// Continue from the recorded value so one bad hop is not
			// reported again at every later hop.
			state = seg.sum
		}
	}
	res.Content = content
	if content == nil {
		res.Content = []byte{}
	}
	return res, nil
}

type slotResult struct {
	content []byte
	err     error
}

// readSlots parses the named witness slots of tx. Slots are independent, so
// several are parsed concurrently and stitched back in index order. In
// permissive mode a bad slot becomes a warning; in strict mode it fails the
// reconstruction.
func (r *Resolver) readSlots(ctx context.Context, hash ledger.TxHash, tx *ledger.Transaction, indexes []uint32) ([]byte, []uint32, []Warning, error) {
	results := make([]slotResult, len(indexes))
	if len(indexes) == 1 {
		results[0] = parseSlot(tx, hash, indexes[0])
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, idx := range indexes {
			i, idx := i, idx
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = parseSlot(tx, hash, idx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, nil, err
		}
	}

	var (
		out   []byte
		read  = make([]uint32, 0, len(indexes))
		warns []Warning
	)
	for i, sr := range results {
		if sr.err != nil {
			if r.opts.Mode == compliance.Strict {
				return nil, nil, nil, sr.err
			}
			warns = append(warns, Warning{TxHash: hash, Index: indexes[i], RuleID: ckbfs.RuleID(sr.err), Message: sr.err.Error()})
			r.log.WithFields(logrus.Fields{"tx": hash.String(), "index": indexes[i], "reason": sr.err.Error()}).Warn("ckbfs witness skipped")
			continue
		}
		out = append(out, sr.content...)
		read = append(read, indexes[i])
	}
	return out, read, warns, nil
}

func parseSlot(tx *ledger.Transaction, hash ledger.TxHash, idx uint32) slotResult {
	w, ok := tx.Witness(idx)
	if !ok {
		return slotResult{err: ckbfs.NewError(ckbfs.KindChainBroken, "CKBFS-CHAIN-002",
			fmt.Sprintf("transaction %s has no witness %d", hash, idx))}
	}
	content, err := witness.ParseV1V2(w)
	return slotResult{content: content, err: err}
}
