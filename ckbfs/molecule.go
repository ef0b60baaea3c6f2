package ckbfs

import (
	"encoding/binary"
	"fmt"

	"xdao.co/ckbfs/ledger"
)

// Molecule-style layout helpers. All integers are little-endian u32.
//
//	table  = total_size | offset[0..n) | fields...
//	fixvec = item_count | items...
//	dynvec = total_size | offset[0..n) | items...

const u32Size = 4

func putU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func packU32(v uint32) []byte { return putU32(nil, v) }

func packBytes(s []byte) []byte {
	out := putU32(make([]byte, 0, u32Size+len(s)), uint32(len(s)))
	return append(out, s...)
}

func packIndexes(idx []uint32) []byte {
	out := putU32(make([]byte, 0, u32Size*(1+len(idx))), uint32(len(idx)))
	for _, v := range idx {
		out = putU32(out, v)
	}
	return out
}

// packTable serializes fields behind a header of total size and offsets.
// A dynvec has the same shape, so it is packed with this too.
func packTable(fields ...[]byte) []byte {
	header := u32Size * (1 + len(fields))
	total := header
	for _, f := range fields {
		total += len(f)
	}
	out := make([]byte, 0, total)
	out = putU32(out, uint32(total))
	off := header
	for _, f := range fields {
		out = putU32(out, uint32(off))
		off += len(f)
	}
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

func codecErr(rule, format string, args ...any) error {
	return NewError(KindCodec, rule, fmt.Sprintf(format, args...))
}

func readU32(b []byte, at int) uint32 { return binary.LittleEndian.Uint32(b[at:]) }

// unpackTable splits a table (or dynvec) into its items. When want >= 0 the
// item count must match exactly.
func unpackTable(b []byte, want int, what string) ([][]byte, error) {
	if len(b) < u32Size {
		return nil, codecErr("CKBFS-CELL-001", "%s: header truncated", what)
	}
	total := int(readU32(b, 0))
	if total != len(b) {
		return nil, codecErr("CKBFS-CELL-002", "%s: total size %d does not match %d bytes", what, total, len(b))
	}
	if total == u32Size {
		if want > 0 {
			return nil, codecErr("CKBFS-CELL-003", "%s: expected %d fields, got 0", what, want)
		}
		return nil, nil
	}
	if total < 2*u32Size {
		return nil, codecErr("CKBFS-CELL-001", "%s: header truncated", what)
	}
	first := int(readU32(b, u32Size))
	if first%u32Size != 0 || first < 2*u32Size || first > total {
		return nil, codecErr("CKBFS-CELL-004", "%s: bad first offset %d", what, first)
	}
	n := first/u32Size - 1
	if want >= 0 && n != want {
		return nil, codecErr("CKBFS-CELL-003", "%s: expected %d fields, got %d", what, want, n)
	}
	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		offsets[i] = int(readU32(b, u32Size*(1+i)))
	}
	offsets[n] = total
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		if offsets[i] > offsets[i+1] {
			return nil, codecErr("CKBFS-CELL-004", "%s: offsets not monotonic", what)
		}
		items[i] = b[offsets[i]:offsets[i+1]]
	}
	return items, nil
}

func unpackU32(b []byte, what string) (uint32, error) {
	if len(b) != u32Size {
		return 0, codecErr("CKBFS-CELL-005", "%s: expected 4 bytes, got %d", what, len(b))
	}
	return readU32(b, 0), nil
}

func unpackBytes(b []byte, what string) (string, error) {
	if len(b) < u32Size {
		return "", codecErr("CKBFS-CELL-005", "%s: truncated", what)
	}
	n := int(readU32(b, 0))
	if len(b) != u32Size+n {
		return "", codecErr("CKBFS-CELL-005", "%s: declares %d bytes, has %d", what, n, len(b)-u32Size)
	}
	return string(b[u32Size:]), nil
}

func unpackIndexes(b []byte, what string) ([]uint32, error) {
	if len(b) < u32Size {
		return nil, codecErr("CKBFS-CELL-005", "%s: truncated", what)
	}
	n := int(readU32(b, 0))
	if len(b) != u32Size*(1+n) {
		return nil, codecErr("CKBFS-CELL-005", "%s: declares %d items, has %d bytes", what, n, len(b)-u32Size)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = readU32(b, u32Size*(1+i))
	}
	return out, nil
}

func unpackHash(b []byte, what string) (ledger.TxHash, error) {
	var h ledger.TxHash
	if len(b) != ledger.HashSize {
		return h, codecErr("CKBFS-CELL-005", "%s: expected %d bytes, got %d", what, ledger.HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}
