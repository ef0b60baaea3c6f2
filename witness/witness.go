// Package witness frames file content into CKBFS witness slots and parses it back.
//
// V1/V2 frames:      "CKBFS" | 0x00 | content
// V3 head frame:     "CKBFS" | 0x03 | prev tx hash (32) | prev witness index (LE u32)
//
//	| prev checksum (LE u32) | next index (LE u32) | content
//
// V3 continuation:   next index (LE u32) | content
package witness

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ledger"
)

// Magic opens every V1/V2 frame and every V3 head frame.
var Magic = []byte("CKBFS")

const (
	SubVersionV1V2 byte = 0x00
	SubVersionV3   byte = 0x03

	// V1V2HeaderSize is magic plus the sub-version byte.
	V1V2HeaderSize = 6
	// V3HeadHeaderSize is magic, sub-version, backlink and next index.
	V3HeadHeaderSize = 6 + ledger.HashSize + 4 + 4 + 4
	// V3ContinuationHeaderSize is the next index alone.
	V3ContinuationHeaderSize = 4
)

// Backlink is the pointer a V3 head frame carries to the previous version.
// The zero value is the genesis sentinel.
type Backlink struct {
	TxHash       ledger.TxHash `json:"txHash"`
	WitnessIndex uint32        `json:"witnessIndex"`
	Checksum     uint32        `json:"checksum"`
}

// IsGenesis reports whether b terminates the chain. Only the hash is
// consulted; a zero hash has no predecessor to point at.
func (b Backlink) IsGenesis() bool { return b.TxHash.IsZero() }

// PrevState is the checksum state the linked version resumes from.
func (b Backlink) PrevState() uint32 {
	if b.IsGenesis() {
		return checksum.Initial
	}
	return b.Checksum
}

// FrameV1V2 wraps content as a V1/V2 witness.
func FrameV1V2(content []byte) []byte {
	out := make([]byte, 0, V1V2HeaderSize+len(content))
	out = append(out, Magic...)
	out = append(out, SubVersionV1V2)
	return append(out, content...)
}

// IsValidV1V2 reports whether w carries the V1/V2 header.
func IsValidV1V2(w []byte) bool {
	return len(w) >= V1V2HeaderSize && bytes.Equal(w[:len(Magic)], Magic)
}

// ParseV1V2 returns the content of a V1/V2 witness. The sub-version byte is
// not checked.
func ParseV1V2(w []byte) ([]byte, error) {
	if len(w) < V1V2HeaderSize {
		return nil, ckbfs.NewError(ckbfs.KindMalformedWitness, "CKBFS-WIT-001",
			fmt.Sprintf("witness too short: %d bytes", len(w)))
	}
	if !bytes.Equal(w[:len(Magic)], Magic) {
		return nil, ckbfs.NewError(ckbfs.KindMalformedWitness, "CKBFS-WIT-002", "witness does not start with CKBFS magic")
	}
	return w[V1V2HeaderSize:], nil
}

// FrameV3Head builds the first witness of a V3 version.
func FrameV3Head(content []byte, prev Backlink, nextIndex uint32) []byte {
	out := make([]byte, 0, V3HeadHeaderSize+len(content))
	out = append(out, Magic...)
	out = append(out, SubVersionV3)
	out = append(out, prev.TxHash[:]...)
	out = binary.LittleEndian.AppendUint32(out, prev.WitnessIndex)
	out = binary.LittleEndian.AppendUint32(out, prev.Checksum)
	out = binary.LittleEndian.AppendUint32(out, nextIndex)
	return append(out, content...)
}

// FrameV3Continuation builds a follow-on witness of a V3 version.
func FrameV3Continuation(content []byte, nextIndex uint32) []byte {
	out := make([]byte, 0, V3ContinuationHeaderSize+len(content))
	out = binary.LittleEndian.AppendUint32(out, nextIndex)
	return append(out, content...)
}

// Frame is a parsed V3 witness.
type Frame struct {
	IsHead    bool
	Content   []byte
	NextIndex uint32
	// Backlink is set only on head frames.
	Backlink *Backlink
}

// IsV3Head reports whether w has the V3 head shape.
func IsV3Head(w []byte) bool {
	return len(w) >= V3HeadHeaderSize &&
		bytes.Equal(w[:len(Magic)], Magic) &&
		w[len(Magic)] == SubVersionV3
}

// ParseV3 classifies w as a head or continuation frame and splits it.
func ParseV3(w []byte) (Frame, error) {
	if IsV3Head(w) {
		bl := Backlink{
			WitnessIndex: binary.LittleEndian.Uint32(w[38:42]),
			Checksum:     binary.LittleEndian.Uint32(w[42:46]),
		}
		copy(bl.TxHash[:], w[6:38])
		return Frame{
			IsHead:    true,
			Content:   w[V3HeadHeaderSize:],
			NextIndex: binary.LittleEndian.Uint32(w[46:50]),
			Backlink:  &bl,
		}, nil
	}
	return ParseV3Continuation(w)
}

// ParseV3Continuation splits a witness reached through a next-index pointer.
// Such a slot is a continuation by position, whatever its first bytes are.
func ParseV3Continuation(w []byte) (Frame, error) {
	if len(w) < V3ContinuationHeaderSize {
		return Frame{}, ckbfs.NewError(ckbfs.KindMalformedWitness, "CKBFS-WIT-101",
			fmt.Sprintf("v3 witness truncated: %d bytes", len(w)))
	}
	return Frame{
		Content:   w[V3ContinuationHeaderSize:],
		NextIndex: binary.LittleEndian.Uint32(w[:4]),
	}, nil
}

// ChunksToWitnesses frames chunks for the given version. startIndex is the
// witness slot the first frame will occupy; V3 continuation pointers are
// derived from it. prev is only used for V3 and may be the zero Backlink.
//
// An empty chunk list still yields one frame, so every version owns at least
// one witness slot.
func ChunksToWitnesses(chunks [][]byte, v ckbfs.Version, startIndex uint32, prev Backlink) ([][]byte, error) {
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	out := make([][]byte, 0, len(chunks))
	switch v {
	case ckbfs.V1, ckbfs.V2:
		for _, c := range chunks {
			out = append(out, FrameV1V2(c))
		}
	case ckbfs.V3:
		if uint64(startIndex)+uint64(len(chunks)) > 1<<32 {
			return nil, ckbfs.NewError(ckbfs.KindInvalidArgument, "CKBFS-WIT-201", "witness indexes overflow")
		}
		for i, c := range chunks {
			var next uint32
			if i < len(chunks)-1 {
				next = startIndex + uint32(i) + 1
			}
			if i == 0 {
				out = append(out, FrameV3Head(c, prev, next))
			} else {
				out = append(out, FrameV3Continuation(c, next))
			}
		}
	default:
		return nil, ckbfs.NewError(ckbfs.KindInvalidArgument, "CKBFS-CFG-001", "unknown protocol version")
	}
	return out, nil
}
