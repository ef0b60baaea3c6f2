package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/witness"
)

type slotRef struct {
	tx    ledger.TxHash
	index uint32
}

// reconstructChained follows the V3 witness chain from the head slot named
// by rec back to the genesis backlink. Every hop's checksum is checked and a
// mismatch is fatal in both compliance modes.
func (r *Resolver) reconstructChained(ctx context.Context, head ledger.TxHash, rec ckbfs.RecordV3) (*Result, error) {
	var (
		cur      = slotRef{tx: head, index: rec.Index}
		expected = rec.Checksum
		visited  = make(map[slotRef]struct{})
		parts    [][]byte
		hops     []Hop
	)

	for {
		if err := r.checkHops(len(hops) + 1); err != nil {
			return nil, err
		}
		tx, err := r.fetch(ctx, cur.tx)
		if err != nil {
			return nil, err
		}

		part, read, prev, err := r.readSegment(cur, tx, visited)
		if err != nil {
			return nil, err
		}
		if got := checksum.Resume(prev.PrevState(), part); got != expected {
			return nil, ckbfs.NewError(ckbfs.KindChecksumMismatch, "CKBFS-SUM-001",
				fmt.Sprintf("checksum after %s is %#08x, chain says %#08x", cur.tx, got, expected))
		}
		parts = append(parts, part)
		hops = append(hops, Hop{TxHash: cur.tx, Indexes: read, Bytes: len(part)})
		r.log.WithFields(logrus.Fields{"tx": cur.tx.String(), "slots": len(read), "bytes": len(part)}).Debug("ckbfs hop")

		if prev.IsGenesis() {
			break
		}
		cur = slotRef{tx: prev.TxHash, index: prev.WitnessIndex}
		expected = prev.Checksum
	}

	// parts and hops were collected newest first.
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	content := make([]byte, 0, size)
	for i := len(parts) - 1; i >= 0; i-- {
		content = append(content, parts[i]...)
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return &Result{
		Content:  content,
		Record:   rec,
		Version:  ckbfs.V3,
		Checksum: rec.Checksum,
		Verified: true,
		Hops:     hops,
	}, nil
}

// readSegment collects one version's content: the head frame at start and
// the continuation frames its next pointers name within the same transaction.
func (r *Resolver) readSegment(start slotRef, tx *ledger.Transaction, visited map[slotRef]struct{}) ([]byte, []uint32, witness.Backlink, error) {
	var (
		content []byte
		read    []uint32
		prev    witness.Backlink
		at      = start
	)
	for first := true; ; first = false {
		if _, seen := visited[at]; seen {
			return nil, nil, prev, ckbfs.NewError(ckbfs.KindChainBroken, "CKBFS-CHAIN-004",
				fmt.Sprintf("witness chain revisits %s witness %d", at.tx, at.index))
		}
		visited[at] = struct{}{}

		w, ok := tx.Witness(at.index)
		if !ok {
			return nil, nil, prev, ckbfs.NewError(ckbfs.KindChainBroken, "CKBFS-CHAIN-002",
				fmt.Sprintf("transaction %s has no witness %d", at.tx, at.index))
		}

		var f witness.Frame
		if first {
			if !witness.IsV3Head(w) {
				return nil, nil, prev, ckbfs.NewError(ckbfs.KindMalformedWitness, "CKBFS-WIT-102",
					fmt.Sprintf("transaction %s witness %d is not a v3 head frame", at.tx, at.index))
			}
			parsed, err := witness.ParseV3(w)
			if err != nil {
				return nil, nil, prev, err
			}
			f, prev = parsed, *parsed.Backlink
		} else {
			parsed, err := witness.ParseV3Continuation(w)
			if err != nil {
				return nil, nil, prev, err
			}
			f = parsed
		}

		content = append(content, f.Content...)
		read = append(read, at.index)
		if f.NextIndex == 0 {
			return content, read, prev, nil
		}
		at = slotRef{tx: at.tx, index: f.NextIndex}
	}
}
