package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/compliance"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/witness"
)

func TestResolve_V1Backlinks_ABCD(t *testing.T) {
	l := ledger.NewMemory()
	c0 := checksum.Calculate([]byte("AB"))
	t0 := commitRecord(t, l, 1,
		ckbfs.RecordV1{Index: 1, Checksum: c0, Filename: "f", BackLinks: []ckbfs.BackLinkV1{}},
		[][]byte{nil, witness.FrameV1V2([]byte("AB"))})

	c1 := checksum.Resume(c0, []byte("CD"))
	t1 := commitRecord(t, l, 2,
		ckbfs.RecordV1{Index: 1, Checksum: c1, Filename: "f", BackLinks: []ckbfs.BackLinkV1{{TxHash: t0, Index: 1, Checksum: c0}}},
		[][]byte{nil, witness.FrameV1V2([]byte("CD"))})

	res, err := newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: t1})
	require.NoError(t, err)
	require.Equal(t, "ABCD", string(res.Content))
	require.Equal(t, ckbfs.V1, res.Version)
	require.Equal(t, c1, res.Checksum)
	require.True(t, res.Verified)
	require.Empty(t, res.Warnings)
	require.Len(t, res.Hops, 2)
	require.Equal(t, t0, res.Hops[0].TxHash)
	require.Equal(t, t1, res.Hops[1].TxHash)
}

func TestResolve_V2MultiSlot(t *testing.T) {
	l := ledger.NewMemory()
	c0 := checksum.Calculate([]byte("hello "))
	t0 := commitRecord(t, l, 1,
		ckbfs.RecordV2{Indexes: []uint32{1, 2}, Checksum: c0, BackLinks: []ckbfs.BackLinkV2{}},
		[][]byte{nil, witness.FrameV1V2([]byte("hel")), witness.FrameV1V2([]byte("lo "))})

	c1 := checksum.Resume(c0, []byte("world"))
	t1 := commitRecord(t, l, 2,
		ckbfs.RecordV2{Indexes: []uint32{1, 2, 3}, Checksum: c1, BackLinks: []ckbfs.BackLinkV2{{TxHash: t0, Indexes: []uint32{1, 2}, Checksum: c0}}},
		[][]byte{nil, witness.FrameV1V2([]byte("wo")), witness.FrameV1V2([]byte("r")), witness.FrameV1V2([]byte("ld"))})

	res, err := newResolver(t, l, Options{Mode: compliance.Strict}).Resolve(context.Background(), ckbfs.Ref{TxHash: t1})
	require.NoError(t, err)
	require.Equal(t, "hello world", string(res.Content))
	require.True(t, res.Verified)
	require.Equal(t, []uint32{1, 2, 3}, res.Hops[1].Indexes)
}

func TestResolve_V2SkipPolicy(t *testing.T) {
	l := ledger.NewMemory()
	content := []byte("kept")
	rec := ckbfs.RecordV2{Indexes: []uint32{1, 2, 9}, Checksum: checksum.Calculate(content), BackLinks: []ckbfs.BackLinkV2{}}
	head := commitRecord(t, l, 1, rec,
		[][]byte{nil, witness.FrameV1V2(content), {0x12, 0x34, 0x56, 0x78}})

	res, err := newResolver(t, l, Options{Mode: compliance.Permissive}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
	require.NoError(t, err)
	require.Equal(t, "kept", string(res.Content))
	require.False(t, res.Verified)
	require.Len(t, res.Warnings, 2)
	require.Equal(t, "CKBFS-WIT-001", res.Warnings[0].RuleID)
	require.Equal(t, uint32(2), res.Warnings[0].Index)
	require.Equal(t, "CKBFS-CHAIN-002", res.Warnings[1].RuleID)
	require.Equal(t, []uint32{1}, res.Hops[0].Indexes)

	_, err = newResolver(t, l, Options{Mode: compliance.Strict}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindMalformedWitness), "got %v", err)
}

func TestResolve_V1ChecksumMismatch(t *testing.T) {
	l := ledger.NewMemory()
	head := commitRecord(t, l, 1,
		ckbfs.RecordV1{Index: 0, Checksum: 12345, BackLinks: []ckbfs.BackLinkV1{}},
		[][]byte{witness.FrameV1V2([]byte("data"))})
	ref := ckbfs.Ref{TxHash: head}

	// Index 0 without backlinks also reads as V2; pin the version.
	res, err := newResolver(t, l, Options{ProbeOrder: []ckbfs.Version{ckbfs.V1}}).Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "data", string(res.Content))
	require.False(t, res.Verified)
	require.Equal(t, "CKBFS-SUM-001", res.Warnings[0].RuleID)

	_, err = newResolver(t, l, Options{Mode: compliance.Strict, ProbeOrder: []ckbfs.Version{ckbfs.V1}}).Resolve(context.Background(), ref)
	require.True(t, ckbfs.IsKind(err, ckbfs.KindChecksumMismatch), "got %v", err)
}

func TestResolve_V3Chain_XY(t *testing.T) {
	l := ledger.NewMemory()
	cx := checksum.Calculate([]byte("X"))
	t0 := commitRecord(t, l, 1,
		ckbfs.RecordV3{Index: 1, Checksum: cx},
		[][]byte{nil, witness.FrameV3Head([]byte("X"), witness.Backlink{}, 0)})

	cxy := checksum.Resume(cx, []byte("Y"))
	t1 := commitRecord(t, l, 2,
		ckbfs.RecordV3{Index: 1, Checksum: cxy},
		[][]byte{nil, witness.FrameV3Head([]byte("Y"), witness.Backlink{TxHash: t0, WitnessIndex: 1, Checksum: cx}, 0)})

	res, err := newResolver(t, l, Options{Mode: compliance.Strict}).Resolve(context.Background(), ckbfs.Ref{TxHash: t1})
	require.NoError(t, err)
	require.Equal(t, "XY", string(res.Content))
	require.Equal(t, ckbfs.V3, res.Version)
	require.True(t, res.Verified)
	require.Len(t, res.Hops, 2)
	require.Equal(t, t0, res.Hops[0].TxHash)
	require.Equal(t, checksum.Calculate([]byte("XY")), res.Checksum)

	_, err = newResolver(t, l, Options{MaxHops: 1}).Resolve(context.Background(), ckbfs.Ref{TxHash: t1})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindChainBroken), "got %v", err)
	require.Equal(t, "CKBFS-CHAIN-003", ckbfs.RuleID(err))
}

func TestResolve_V3Continuations(t *testing.T) {
	l := ledger.NewMemory()
	chunks := [][]byte{[]byte("he"), []byte("ll"), []byte("o")}
	ws, err := witness.ChunksToWitnesses(chunks, ckbfs.V3, 1, witness.Backlink{})
	require.NoError(t, err)
	head := commitRecord(t, l, 1,
		ckbfs.RecordV3{Index: 1, Checksum: checksum.Calculate([]byte("hello"))},
		append([][]byte{nil}, ws...))

	res, err := newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
	require.NoError(t, err)
	require.Equal(t, "hello", string(res.Content))
	require.Equal(t, []uint32{1, 2, 3}, res.Hops[0].Indexes)
}

func TestResolve_V3ChecksumMismatchIsFatal(t *testing.T) {
	l := ledger.NewMemory()
	head := commitRecord(t, l, 1,
		ckbfs.RecordV3{Index: 0, Checksum: 99},
		[][]byte{witness.FrameV3Head([]byte("X"), witness.Backlink{}, 0)})

	for _, mode := range []compliance.ComplianceMode{compliance.Permissive, compliance.Strict} {
		res, err := newResolver(t, l, Options{Mode: mode}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
		require.Nil(t, res)
		require.True(t, ckbfs.IsKind(err, ckbfs.KindChecksumMismatch), "mode %v: got %v", mode, err)
		require.Equal(t, "CKBFS-SUM-001", ckbfs.RuleID(err))
	}
}

func TestResolve_V3SelfCycle(t *testing.T) {
	l := ledger.NewMemory()
	const prev = 7
	rec := ckbfs.RecordV3{Index: 0, Checksum: checksum.Resume(prev, []byte("Z"))}
	self := selfHash(t, 1, rec)
	head := commitRecord(t, l, 1, rec,
		[][]byte{witness.FrameV3Head([]byte("Z"), witness.Backlink{TxHash: self, WitnessIndex: 0, Checksum: prev}, 0)})
	require.Equal(t, self, head)

	_, err := newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindChainBroken), "got %v", err)
	require.Equal(t, "CKBFS-CHAIN-004", ckbfs.RuleID(err))
}

func TestResolve_V3ContinuationLoop(t *testing.T) {
	l := ledger.NewMemory()
	// Slot 2 points back at the head in slot 1.
	head := commitRecord(t, l, 1,
		ckbfs.RecordV3{Index: 1, Checksum: 1},
		[][]byte{
			nil,
			witness.FrameV3Head(nil, witness.Backlink{}, 2),
			witness.FrameV3Continuation(nil, 1),
		})
	_, err := newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: head})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindChainBroken), "got %v", err)
	require.Equal(t, "CKBFS-CHAIN-004", ckbfs.RuleID(err))
}

func TestResolve_V3HeadMissingOrMalformed(t *testing.T) {
	l := ledger.NewMemory()
	missing := commitRecord(t, l, 1, ckbfs.RecordV3{Index: 4, Checksum: 1}, [][]byte{nil})
	_, err := newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: missing})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindChainBroken), "got %v", err)

	notHead := commitRecord(t, l, 2, ckbfs.RecordV3{Index: 0, Checksum: 1}, [][]byte{witness.FrameV1V2([]byte("x"))})
	_, err = newResolver(t, l, Options{}).Resolve(context.Background(), ckbfs.Ref{TxHash: notHead})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindMalformedWitness), "got %v", err)
}

func TestResolve_NotFound(t *testing.T) {
	l := ledger.NewMemory()
	r := newResolver(t, l, Options{})
	_, err := r.Resolve(context.Background(), ckbfs.Ref{TxHash: ledger.TxHash{0x42}})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindNotFound), "got %v", err)
	require.True(t, ledger.IsNotFound(err))

	head := commitRecord(t, l, 1, ckbfs.RecordV3{Index: 0, Checksum: 1}, [][]byte{witness.FrameV3Head(nil, witness.Backlink{}, 0)})
	_, err = r.Resolve(context.Background(), ckbfs.Ref{TxHash: head, Index: 3})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindNotFound), "got %v", err)

	// Broken backlink: the previous version was never committed.
	rec := ckbfs.RecordV3{Index: 0, Checksum: checksum.Resume(5, []byte("a"))}
	orphan := commitRecord(t, l, 2, rec, [][]byte{witness.FrameV3Head([]byte("a"), witness.Backlink{TxHash: ledger.TxHash{0x77}, Checksum: 5}, 0)})
	_, err = r.Resolve(context.Background(), ckbfs.Ref{TxHash: orphan})
	require.True(t, ckbfs.IsKind(err, ckbfs.KindNotFound), "got %v", err)
}

func TestResolve_Canceled(t *testing.T) {
	l := ledger.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newResolver(t, l, Options{}).Resolve(ctx, ckbfs.Ref{TxHash: ledger.TxHash{1}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(nil, Options{})
	require.ErrorIs(t, err, ErrMissingFetcher)
}

func TestReadSlots_CanceledFanOut(t *testing.T) {
	tx := &ledger.Transaction{Witnesses: [][]byte{nil, witness.FrameV1V2([]byte("a")), witness.FrameV1V2([]byte("b"))}}
	r := newResolver(t, ledger.NewMemory(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := r.readSlots(ctx, ledger.TxHash{1}, tx, []uint32{1, 2})
	require.ErrorIs(t, err, context.Canceled)

	content, read, warns, err := r.readSlots(context.Background(), ledger.TxHash{1}, tx, []uint32{1, 2})
	require.NoError(t, err)
	require.Equal(t, "ab", string(content))
	require.Equal(t, []uint32{1, 2}, read)
	require.Empty(t, warns)
}

func TestOptions_ProbeOrderIsCopied(t *testing.T) {
	order := []ckbfs.Version{ckbfs.V2, ckbfs.V1}
	o := Options{ProbeOrder: order}.withDefaults()
	order[0] = ckbfs.V3
	require.Equal(t, []ckbfs.Version{ckbfs.V2, ckbfs.V1}, o.ProbeOrder)

	d := Options{}.withDefaults()
	d.ProbeOrder[0] = ckbfs.V1
	require.Equal(t, []ckbfs.Version{ckbfs.V3, ckbfs.V2, ckbfs.V1}, ckbfs.DefaultProbeOrder())
}
