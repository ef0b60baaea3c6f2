// Package publisher turns file content into CKBFS witnesses and cell data
// and hands them to an assembler for commitment.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/assembler"
	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/chunk"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/witness"
)

var (
	ErrMissingFetcher   = errors.New("publisher: missing transaction fetcher")
	ErrMissingAssembler = errors.New("publisher: missing assembler")
)

// Publisher publishes new files and appends to existing ones.
type Publisher struct {
	fetcher ledger.Fetcher
	asm     assembler.Assembler
	cfg     ckbfs.Config
	log     *logrus.Logger
}

func New(f ledger.Fetcher, asm assembler.Assembler, cfg ckbfs.Config, logger *logrus.Logger) (*Publisher, error) {
	if f == nil {
		return nil, ErrMissingFetcher
	}
	if asm == nil {
		return nil, ErrMissingAssembler
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{fetcher: f, asm: asm, cfg: cfg, log: logger}, nil
}

// File is the content and metadata of a new file.
type File struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Published describes a committed file version.
type Published struct {
	Ref    ckbfs.Ref
	Record ckbfs.Record
	// Witnesses lists the slots holding this version's content.
	Witnesses []uint32
}

// Publish commits f as a new file using the configured protocol version.
func (p *Publisher) Publish(ctx context.Context, f File) (*Published, error) {
	v := p.cfg.Version
	lock, start, err := p.ownerLock(ctx)
	if err != nil {
		return nil, err
	}
	frames, slots, err := p.frame(f.Content, v, start, witness.Backlink{})
	if err != nil {
		return nil, err
	}

	rec, err := ckbfs.Fields{
		Indexes:     slots,
		Checksum:    checksum.Calculate(f.Content),
		ContentType: f.ContentType,
		Filename:    f.Filename,
	}.Build(v)
	if err != nil {
		return nil, err
	}

	typ := p.asm.TypeScript()
	out := ledger.CellOutput{Lock: lock.Script, Type: &typ}
	pub, err := p.commit(ctx, nil, out, rec, frames, start)
	if err != nil {
		return nil, err
	}
	pub.Witnesses = slots
	p.log.WithFields(logrus.Fields{
		"ref": pub.Ref.String(), "version": v.String(), "bytes": len(f.Content), "witnesses": len(slots),
	}).Info("ckbfs file published")
	return pub, nil
}

// Append commits content as the next version of the file at prev. The new
// version keeps the previous record's protocol version, content type and
// filename, and spends the previous cell.
func (p *Publisher) Append(ctx context.Context, prev ckbfs.Ref, content []byte) (*Published, error) {
	prevTx, err := p.fetcher.FetchTransaction(ctx, prev.TxHash)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ckbfs.WrapError(ckbfs.KindNotFound, "CKBFS-CHAIN-001", fmt.Sprintf("transaction %s not found", prev.TxHash), err)
		}
		return nil, err
	}
	data, ok := prevTx.OutputData(prev.Index)
	if !ok || int(prev.Index) >= len(prevTx.Outputs) {
		return nil, ckbfs.NewError(ckbfs.KindNotFound, "CKBFS-CHAIN-005",
			fmt.Sprintf("transaction %s has no output %d", prev.TxHash, prev.Index))
	}
	prevRec, err := ckbfs.UnpackAny(data, p.cfg.ProbeOrder)
	if err != nil {
		return nil, err
	}

	v := prevRec.Version()
	_, start, err := p.ownerLock(ctx)
	if err != nil {
		return nil, err
	}

	var backlink witness.Backlink
	fields := ckbfs.Fields{Checksum: checksum.Resume(prevRec.Sum(), content)}
	fields.ContentType, fields.Filename = prevRec.Meta()
	switch r := prevRec.(type) {
	case ckbfs.RecordV1:
		for _, bl := range r.BackLinks {
			idx := bl.Index
			fields.BackLinks = append(fields.BackLinks, ckbfs.BackLink{TxHash: bl.TxHash, Index: &idx, Checksum: bl.Checksum})
		}
		idx := r.Index
		fields.BackLinks = append(fields.BackLinks, ckbfs.BackLink{TxHash: prev.TxHash, Index: &idx, Checksum: r.Checksum})
	case ckbfs.RecordV2:
		for _, bl := range r.BackLinks {
			fields.BackLinks = append(fields.BackLinks, ckbfs.BackLink{TxHash: bl.TxHash, Indexes: bl.Indexes, Checksum: bl.Checksum})
		}
		fields.BackLinks = append(fields.BackLinks, ckbfs.BackLink{TxHash: prev.TxHash, Indexes: r.Indexes, Checksum: r.Checksum})
	case ckbfs.RecordV3:
		backlink = witness.Backlink{TxHash: prev.TxHash, WitnessIndex: r.Index, Checksum: r.Checksum}
	}

	frames, slots, err := p.frame(content, v, start, backlink)
	if err != nil {
		return nil, err
	}
	fields.Indexes = slots
	rec, err := fields.Build(v)
	if err != nil {
		return nil, err
	}

	out := prevTx.Outputs[prev.Index]
	out.Capacity = 0
	pub, err := p.commit(ctx, []ledger.OutPoint{prev.OutPoint()}, out, rec, frames, start)
	if err != nil {
		return nil, err
	}
	pub.Witnesses = slots
	p.log.WithFields(logrus.Fields{
		"ref": pub.Ref.String(), "prev": prev.String(), "version": v.String(), "bytes": len(content),
	}).Info("ckbfs file appended")
	return pub, nil
}

func (p *Publisher) ownerLock(ctx context.Context) (assembler.Lock, uint32, error) {
	lock, err := p.asm.OwnerLock(ctx)
	if err != nil {
		return lock, 0, err
	}
	var start uint32
	if lock.RequiresSigningWitness {
		start = 1
	}
	return lock, start, nil
}

// frame splits content and frames it for version v, returning the frames
// and the witness slots they will occupy.
func (p *Publisher) frame(content []byte, v ckbfs.Version, start uint32, prev witness.Backlink) ([][]byte, []uint32, error) {
	chunks, err := chunk.Split(content, p.cfg.ChunkSize)
	if err != nil {
		return nil, nil, err
	}
	if v == ckbfs.V1 && len(chunks) > 1 {
		return nil, nil, ckbfs.NewError(ckbfs.KindInvalidArgument, "CKBFS-PUB-001",
			fmt.Sprintf("v1 records address a single witness; content needs %d chunks of %d bytes", len(chunks), p.cfg.ChunkSize))
	}
	frames, err := witness.ChunksToWitnesses(chunks, v, start, prev)
	if err != nil {
		return nil, nil, err
	}
	slots := make([]uint32, len(frames))
	for i := range frames {
		slots[i] = start + uint32(i)
	}
	return frames, slots, nil
}

func (p *Publisher) commit(ctx context.Context, inputs []ledger.OutPoint, out ledger.CellOutput, rec ckbfs.Record, frames [][]byte, start uint32) (*Published, error) {
	data, err := ckbfs.Pack(rec)
	if err != nil {
		return nil, err
	}
	witnesses := make([][]byte, 0, int(start)+len(frames))
	if start == 1 {
		witnesses = append(witnesses, []byte{})
	}
	witnesses = append(witnesses, frames...)

	hash, err := p.asm.AssembleAndCommit(ctx, assembler.Request{
		Inputs:      inputs,
		Outputs:     []ledger.CellOutput{out},
		OutputsData: [][]byte{data},
		Witnesses:   witnesses,
		FeeRate:     p.cfg.FeeRate,
	})
	if err != nil {
		return nil, err
	}
	return &Published{Ref: ckbfs.Ref{TxHash: hash, Index: 0}, Record: rec}, nil
}
