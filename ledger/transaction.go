package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// HashSize is the length of a transaction hash.
const HashSize = 32

// TxHash identifies a committed transaction.
type TxHash [HashSize]byte

// ZeroHash is the all-zero hash. CKBFS uses it as the "no previous
// transaction" sentinel in V3 witness backlinks.
var ZeroHash TxHash

func (h TxHash) IsZero() bool { return h == ZeroHash }

func (h TxHash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h TxHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *TxHash) UnmarshalText(text []byte) error {
	parsed, err := ParseTxHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseTxHash parses a 64-character hex hash, with or without a 0x prefix.
func ParseTxHash(s string) (TxHash, error) {
	var h TxHash
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("%w: expected %d hex chars, got %d", ErrInvalidHash, 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return h, nil
}

// OutPoint references one output of a committed transaction.
type OutPoint struct {
	TxHash TxHash `cbor:"1,keyasint" json:"txHash"`
	Index  uint32 `cbor:"2,keyasint" json:"index"`
}

func (o OutPoint) String() string { return fmt.Sprintf("%s:%d", o.TxHash, o.Index) }

// Script is a lock or type script reference.
type Script struct {
	CodeHash [HashSize]byte `cbor:"1,keyasint" json:"codeHash"`
	HashType uint8          `cbor:"2,keyasint" json:"hashType"`
	Args     []byte         `cbor:"3,keyasint,omitempty" json:"args"`
}

// Size is the number of bytes the script occupies in a cell.
func (s Script) Size() int { return HashSize + 1 + len(s.Args) }

// CellOutput is one output cell; its data lives at the same position in
// Transaction.OutputsData.
type CellOutput struct {
	Capacity uint64  `cbor:"1,keyasint" json:"capacity"`
	Lock     Script  `cbor:"2,keyasint" json:"lock"`
	Type     *Script `cbor:"3,keyasint,omitempty" json:"type,omitempty"`
}

// Transaction is the subset of a ledger transaction CKBFS reads and writes.
//
// Witnesses are not covered by the transaction hash, so a signature can be
// placed in a witness slot after the hash is known.
type Transaction struct {
	Inputs      []OutPoint   `cbor:"1,keyasint,omitempty" json:"inputs"`
	Outputs     []CellOutput `cbor:"2,keyasint,omitempty" json:"outputs"`
	OutputsData [][]byte     `cbor:"3,keyasint,omitempty" json:"outputsData"`
	Witnesses   [][]byte     `cbor:"4,keyasint,omitempty" json:"witnesses"`
}

type rawTransaction struct {
	Inputs      []OutPoint   `cbor:"1,keyasint,omitempty"`
	Outputs     []CellOutput `cbor:"2,keyasint,omitempty"`
	OutputsData [][]byte     `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ledger: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ledger: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes tx deterministically. Equal transactions always produce
// identical bytes.
func Marshal(tx *Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("ledger: nil transaction")
	}
	return encMode.Marshal(tx)
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := decMode.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("ledger: decode transaction: %w", err)
	}
	return &tx, nil
}

// ComputeHash returns blake2b-256 over the deterministic encoding of the
// transaction without its witnesses.
func ComputeHash(tx *Transaction) (TxHash, error) {
	if tx == nil {
		return ZeroHash, fmt.Errorf("ledger: nil transaction")
	}
	raw, err := encMode.Marshal(rawTransaction{
		Inputs:      tx.Inputs,
		Outputs:     tx.Outputs,
		OutputsData: tx.OutputsData,
	})
	if err != nil {
		return ZeroHash, err
	}
	return blake2b.Sum256(raw), nil
}

// Witness returns the witness at index, or false if out of range.
func (tx *Transaction) Witness(index uint32) ([]byte, bool) {
	if tx == nil || uint64(index) >= uint64(len(tx.Witnesses)) {
		return nil, false
	}
	return tx.Witnesses[index], true
}

// OutputData returns the output data at index, or false if out of range.
func (tx *Transaction) OutputData(index uint32) ([]byte, bool) {
	if tx == nil || uint64(index) >= uint64(len(tx.OutputsData)) {
		return nil, false
	}
	return tx.OutputsData[index], true
}

// Equal reports whether two transactions encode identically.
func Equal(a, b *Transaction) bool {
	ab, err := Marshal(a)
	if err != nil {
		return false
	}
	bb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
