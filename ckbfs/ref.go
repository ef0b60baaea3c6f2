package ckbfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/ckbfs/cidutil"
	"xdao.co/ckbfs/ledger"
)

// RefScheme prefixes canonical file references.
const RefScheme = "ckbfs://"

// Ref names a file version: the transaction and the output index of its cell.
type Ref struct {
	TxHash ledger.TxHash
	Index  uint32
}

func (r Ref) OutPoint() ledger.OutPoint { return ledger.OutPoint{TxHash: r.TxHash, Index: r.Index} }

func (r Ref) String() string { return fmt.Sprintf("%s%s:%d", RefScheme, r.TxHash, r.Index) }

// ParseRef accepts "ckbfs://0x<hash>:<index>", "0x<hash>:<index>" or a bare
// hash, which refers to output 0. The hash may also be given as a
// transaction CID (the names localfs stores transactions under).
func ParseRef(s string) (Ref, error) {
	var r Ref
	s = strings.TrimPrefix(strings.TrimSpace(s), RefScheme)
	hashPart, idxPart, hasIdx := strings.Cut(s, ":")
	h, err := ledger.ParseTxHash(hashPart)
	if err != nil {
		if id, cerr := cid.Decode(hashPart); cerr == nil {
			if th, ok := cidutil.TxHashFromCID(id); ok {
				h, err = th, nil
			}
		}
	}
	if err != nil {
		return r, WrapError(KindInvalidArgument, "CKBFS-REF-001", fmt.Sprintf("invalid reference %q", s), err)
	}
	r.TxHash = h
	if hasIdx {
		n, err := strconv.ParseUint(idxPart, 10, 32)
		if err != nil {
			return r, WrapError(KindInvalidArgument, "CKBFS-REF-002", fmt.Sprintf("invalid output index %q", idxPart), err)
		}
		r.Index = uint32(n)
	}
	return r, nil
}

func (r Ref) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
