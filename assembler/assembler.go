// Package assembler completes CKBFS transactions: it supplies the owner
// lock, fills capacities, funds fees, signs and commits.
//
// The publisher hands over only the CKBFS-specific outputs, data and
// witnesses; an Assembler must keep them at their positions and may append
// inputs and outputs of its own after them.
package assembler

import (
	"context"

	"golang.org/x/crypto/blake2b"

	"xdao.co/ckbfs/ledger"
)

// Lock describes the owner lock new CKBFS cells are guarded by.
type Lock struct {
	Script ledger.Script
	// RequiresSigningWitness reserves witness slot 0 for the owner's
	// signature, shifting CKBFS witnesses to start at slot 1.
	RequiresSigningWitness bool
}

// Request is what the publisher needs committed.
type Request struct {
	// Inputs are cells that must be spent, e.g. the previous CKBFS cell.
	Inputs      []ledger.OutPoint
	Outputs     []ledger.CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
	// FeeRate is in shannons per 1000 bytes.
	FeeRate uint64
}

type Assembler interface {
	OwnerLock(ctx context.Context) (Lock, error)
	// TypeScript is the CKBFS type script template. Outputs carrying it
	// with empty args receive a fresh type id.
	TypeScript() ledger.Script
	AssembleAndCommit(ctx context.Context, req Request) (ledger.TxHash, error)
}

// ShannonsPerByte is the capacity cost of one occupied byte.
const ShannonsPerByte = 100_000_000

// OccupiedCapacity is the minimum capacity a cell with data must hold:
// 8 bytes of capacity field plus lock, type and data.
func OccupiedCapacity(out ledger.CellOutput, data []byte) uint64 {
	size := 8 + out.Lock.Size() + len(data)
	if out.Type != nil {
		size += out.Type.Size()
	}
	return uint64(size) * ShannonsPerByte
}

// Fee returns ceil(size * rate / 1000).
func Fee(size int, rate uint64) uint64 {
	return (uint64(size)*rate + 999) / 1000
}

// TypeID derives a type-script args value that is unique per creating
// transaction and output position.
func TypeID(firstInput ledger.OutPoint, outputIndex uint32) []byte {
	var buf [ledger.HashSize + 8]byte
	copy(buf[:], firstInput.TxHash[:])
	le32(buf[ledger.HashSize:], firstInput.Index)
	le32(buf[ledger.HashSize+4:], outputIndex)
	sum := blake2b.Sum256(buf[:])
	return sum[:]
}

func le32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

// systemCodeHash names a built-in devnet script.
func systemCodeHash(name string) [ledger.HashSize]byte {
	return blake2b.Sum256([]byte("ckbfs-devnet-script:" + name))
}

var (
	AlwaysSuccessCodeHash  = systemCodeHash("always-success")
	Ed25519LockCodeHash    = systemCodeHash("ed25519-lock")
	Dilithium3LockCodeHash = systemCodeHash("dilithium3-lock")
	CKBFSTypeCodeHash      = systemCodeHash("ckbfs-type")
)

// HashTypeType marks scripts referenced by type hash.
const HashTypeType uint8 = 1
