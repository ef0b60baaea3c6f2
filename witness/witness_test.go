package witness

import (
	"bytes"
	"encoding/hex"
	"testing"

	"pgregory.net/rapid"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
)

func TestFrameV1V2_Layout(t *testing.T) {
	got := hex.EncodeToString(FrameV1V2([]byte("AB")))
	if want := "434b4246530041" + "42"; got != want {
		t.Fatalf("frame = %s want %s", got, want)
	}
}

func TestParseV1V2_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := rapid.SliceOf(rapid.Byte()).Draw(t, "content")
		w := FrameV1V2(content)
		if !IsValidV1V2(w) {
			t.Fatalf("framed witness not valid")
		}
		got, err := ParseV1V2(w)
		if err != nil {
			t.Fatalf("ParseV1V2: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("content mismatch")
		}
	})
}

func TestParseV1V2_RejectsBadMagic(t *testing.T) {
	cases := []struct {
		in   []byte
		rule string
	}{
		{[]byte{0x12, 0x34, 0x56, 0x78}, "CKBFS-WIT-001"},
		{[]byte("CKBFS"), "CKBFS-WIT-001"},
		{[]byte("CKBFX\x00data"), "CKBFS-WIT-002"},
	}
	for _, tc := range cases {
		if IsValidV1V2(tc.in) {
			t.Fatalf("IsValidV1V2(%x) = true", tc.in)
		}
		_, err := ParseV1V2(tc.in)
		if !ckbfs.IsKind(err, ckbfs.KindMalformedWitness) {
			t.Fatalf("ParseV1V2(%x): expected MalformedWitness, got %v", tc.in, err)
		}
		if ckbfs.RuleID(err) != tc.rule {
			t.Fatalf("ParseV1V2(%x): RuleID %q want %q", tc.in, ckbfs.RuleID(err), tc.rule)
		}
	}
}

func TestV3Head_Layout(t *testing.T) {
	var h ledger.TxHash
	h[0], h[31] = 0x11, 0x22
	w := FrameV3Head([]byte("Y"), Backlink{TxHash: h, WitnessIndex: 1, Checksum: 0x005a005a}, 0)
	if len(w) != V3HeadHeaderSize+1 || V3HeadHeaderSize != 50 {
		t.Fatalf("head length %d", len(w))
	}
	if string(w[:5]) != "CKBFS" || w[5] != 0x03 {
		t.Fatalf("bad head prefix %x", w[:6])
	}
	if w[6] != 0x11 || w[37] != 0x22 {
		t.Fatalf("hash not at offset 6")
	}
	if !bytes.Equal(w[38:42], []byte{1, 0, 0, 0}) || !bytes.Equal(w[42:46], []byte{0x5a, 0, 0x5a, 0}) {
		t.Fatalf("backlink fields not little-endian: %x", w[38:46])
	}

	f, err := ParseV3(w)
	if err != nil {
		t.Fatalf("ParseV3: %v", err)
	}
	if !f.IsHead || string(f.Content) != "Y" || f.NextIndex != 0 || f.Backlink == nil {
		t.Fatalf("unexpected frame %+v", f)
	}
	if f.Backlink.TxHash != h || f.Backlink.WitnessIndex != 1 || f.Backlink.Checksum != 0x005a005a {
		t.Fatalf("unexpected backlink %+v", f.Backlink)
	}
}

func TestParseV3_Continuation(t *testing.T) {
	f, err := ParseV3(FrameV3Continuation([]byte("tail"), 7))
	if err != nil {
		t.Fatalf("ParseV3: %v", err)
	}
	if f.IsHead || f.NextIndex != 7 || string(f.Content) != "tail" || f.Backlink != nil {
		t.Fatalf("unexpected frame %+v", f)
	}

	_, err = ParseV3([]byte{1, 2, 3})
	if !ckbfs.IsKind(err, ckbfs.KindMalformedWitness) || ckbfs.RuleID(err) != "CKBFS-WIT-101" {
		t.Fatalf("expected CKBFS-WIT-101, got %v", err)
	}
}

func TestBacklink_Genesis(t *testing.T) {
	var zero Backlink
	if !zero.IsGenesis() || zero.PrevState() != 1 {
		t.Fatalf("zero backlink should be genesis with state 1")
	}
	bl := Backlink{TxHash: ledger.TxHash{1}, Checksum: 99}
	if bl.IsGenesis() || bl.PrevState() != 99 {
		t.Fatalf("non-zero backlink misread")
	}
}

func TestChunksToWitnesses_V3Chain(t *testing.T) {
	prev := Backlink{TxHash: ledger.TxHash{9}, WitnessIndex: 2, Checksum: 5}
	ws, err := ChunksToWitnesses([][]byte{[]byte("a"), []byte("b"), []byte("c")}, ckbfs.V3, 1, prev)
	if err != nil {
		t.Fatalf("ChunksToWitnesses: %v", err)
	}
	if len(ws) != 3 {
		t.Fatalf("got %d witnesses", len(ws))
	}
	wantNext := []uint32{2, 3, 0}
	for i, w := range ws {
		f, err := ParseV3(w)
		if err != nil {
			t.Fatalf("ParseV3(%d): %v", i, err)
		}
		if f.IsHead != (i == 0) {
			t.Fatalf("witness %d head=%v", i, f.IsHead)
		}
		if f.NextIndex != wantNext[i] {
			t.Fatalf("witness %d next=%d want %d", i, f.NextIndex, wantNext[i])
		}
	}
	head, _ := ParseV3(ws[0])
	if *head.Backlink != prev {
		t.Fatalf("head backlink %+v", head.Backlink)
	}
}

func TestChunksToWitnesses_V1V2(t *testing.T) {
	for _, v := range []ckbfs.Version{ckbfs.V1, ckbfs.V2} {
		ws, err := ChunksToWitnesses([][]byte{[]byte("AB"), []byte("CD")}, v, 0, Backlink{})
		if err != nil {
			t.Fatalf("%v: %v", v, err)
		}
		for i, want := range []string{"AB", "CD"} {
			got, err := ParseV1V2(ws[i])
			if err != nil || string(got) != want {
				t.Fatalf("%v witness %d = %q, %v", v, i, got, err)
			}
		}
	}

	ws, err := ChunksToWitnesses(nil, ckbfs.V3, 0, Backlink{})
	if err != nil || len(ws) != 1 || !IsV3Head(ws[0]) {
		t.Fatalf("empty content should still yield one head frame: %v", err)
	}
}
