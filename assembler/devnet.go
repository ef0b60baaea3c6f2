package assembler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"xdao.co/ckbfs/keys"
	"xdao.co/ckbfs/ledger"
)

var (
	ErrInsufficientCapacity = errors.New("assembler: insufficient capacity")
	ErrAlreadySpent         = errors.New("assembler: input already spent")
	ErrNotOwner             = errors.New("assembler: input not owned by signer")
	ErrSigningSlot          = errors.New("assembler: witness slot 0 must be reserved empty for the signature")
)

// DefaultDevnetBalance is the funding cell capacity of a new Devnet, in shannons.
const DefaultDevnetBalance uint64 = 100_000_000 * ShannonsPerByte

type DevnetOptions struct {
	// Signer guards CKBFS cells. Nil selects an always-success lock with no
	// signing witness.
	Signer keys.Signer
	// Balance overrides DefaultDevnetBalance when non-zero.
	Balance uint64
	Logger  *logrus.Logger
}

// Devnet is an in-process assembler over any ledger.Ledger. It funds
// transactions from a single faucet cell whose change is carried from one
// transaction to the next, and tracks spent outpoints for its lifetime.
type Devnet struct {
	ledger ledger.Ledger
	signer keys.Signer
	log    *logrus.Logger

	mu      sync.Mutex
	funding ledger.OutPoint
	balance uint64
	spent   map[ledger.OutPoint]struct{}
}

var _ Assembler = (*Devnet)(nil)

// GenesisOutPoint is the faucet cell every Devnet starts from.
var GenesisOutPoint = ledger.OutPoint{TxHash: blake2b.Sum256([]byte("ckbfs-devnet-genesis"))}

func NewDevnet(l ledger.Ledger, opts DevnetOptions) (*Devnet, error) {
	if l == nil {
		return nil, errors.New("assembler: missing ledger")
	}
	balance := opts.Balance
	if balance == 0 {
		balance = DefaultDevnetBalance
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Devnet{
		ledger:  l,
		signer:  opts.Signer,
		log:     log,
		funding: GenesisOutPoint,
		balance: balance,
		spent:   make(map[ledger.OutPoint]struct{}),
	}, nil
}

func (d *Devnet) OwnerLock(context.Context) (Lock, error) {
	if d.signer == nil {
		return Lock{Script: ledger.Script{CodeHash: AlwaysSuccessCodeHash, HashType: HashTypeType}}, nil
	}
	code := Ed25519LockCodeHash
	if d.signer.Algorithm() == keys.AlgDilithium3 {
		code = Dilithium3LockCodeHash
	}
	return Lock{
		Script:                 ledger.Script{CodeHash: code, HashType: HashTypeType, Args: keys.LockArgs(d.signer.PublicKey())},
		RequiresSigningWitness: true,
	}, nil
}

func (d *Devnet) TypeScript() ledger.Script {
	return ledger.Script{CodeHash: CKBFSTypeCodeHash, HashType: HashTypeType}
}

// Balance reports the remaining faucet capacity.
func (d *Devnet) Balance() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance
}

func (d *Devnet) AssembleAndCommit(ctx context.Context, req Request) (ledger.TxHash, error) {
	if len(req.Outputs) != len(req.OutputsData) {
		return ledger.ZeroHash, fmt.Errorf("assembler: %d outputs but %d data entries", len(req.Outputs), len(req.OutputsData))
	}
	lock, err := d.OwnerLock(ctx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	if lock.RequiresSigningWitness && (len(req.Witnesses) == 0 || len(req.Witnesses[0]) != 0) {
		return ledger.ZeroHash, ErrSigningSlot
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	inCapacity := d.balance
	for _, in := range req.Inputs {
		c, err := d.ownedCapacity(ctx, in, lock.Script)
		if err != nil {
			return ledger.ZeroHash, err
		}
		inCapacity += c
	}

	tx := &ledger.Transaction{
		Inputs:      append(append([]ledger.OutPoint(nil), req.Inputs...), d.funding),
		Outputs:     make([]ledger.CellOutput, 0, len(req.Outputs)+1),
		OutputsData: make([][]byte, 0, len(req.Outputs)+1),
		Witnesses:   append([][]byte(nil), req.Witnesses...),
	}
	typeTemplate := d.TypeScript()
	var outCapacity uint64
	for i, out := range req.Outputs {
		if out.Type != nil && len(out.Type.Args) == 0 && out.Type.CodeHash == typeTemplate.CodeHash {
			typ := *out.Type
			typ.Args = TypeID(tx.Inputs[0], uint32(i))
			out.Type = &typ
		}
		if floor := OccupiedCapacity(out, req.OutputsData[i]); out.Capacity < floor {
			out.Capacity = floor
		}
		outCapacity += out.Capacity
		tx.Outputs = append(tx.Outputs, out)
		tx.OutputsData = append(tx.OutputsData, req.OutputsData[i])
	}

	change := ledger.CellOutput{Lock: lock.Script}
	tx.Outputs = append(tx.Outputs, change)
	tx.OutputsData = append(tx.OutputsData, nil)

	encoded, err := ledger.Marshal(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	size := len(encoded) + 16 // change capacity field
	if d.signer != nil {
		size += d.signer.SignatureSize()
	}
	fee := Fee(size, req.FeeRate)

	need := outCapacity + fee + OccupiedCapacity(change, nil)
	if inCapacity < need {
		return ledger.ZeroHash, fmt.Errorf("%w: have %d shannons, need %d", ErrInsufficientCapacity, inCapacity, need)
	}
	tx.Outputs[len(tx.Outputs)-1].Capacity = inCapacity - outCapacity - fee

	hash, err := ledger.ComputeHash(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	if d.signer != nil {
		sig, err := d.signer.Sign(hash[:])
		if err != nil {
			return ledger.ZeroHash, fmt.Errorf("assembler: sign: %w", err)
		}
		tx.Witnesses[0] = sig
	}

	committed, err := d.ledger.Commit(ctx, tx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	if committed != hash {
		return ledger.ZeroHash, ledger.ErrHashMismatch
	}

	for _, in := range req.Inputs {
		d.spent[in] = struct{}{}
	}
	d.spent[d.funding] = struct{}{}
	d.funding = ledger.OutPoint{TxHash: hash, Index: uint32(len(tx.Outputs) - 1)}
	d.balance = tx.Outputs[len(tx.Outputs)-1].Capacity

	d.log.WithFields(logrus.Fields{"tx": hash.String(), "size": size, "fee": fee}).Debug("devnet transaction committed")
	return hash, nil
}

// ownedCapacity checks that in is unspent and locked by owner, returning
// its capacity.
func (d *Devnet) ownedCapacity(ctx context.Context, in ledger.OutPoint, owner ledger.Script) (uint64, error) {
	if _, ok := d.spent[in]; ok {
		return 0, fmt.Errorf("%w: %s", ErrAlreadySpent, in)
	}
	prev, err := d.ledger.FetchTransaction(ctx, in.TxHash)
	if err != nil {
		return 0, fmt.Errorf("assembler: input %s: %w", in, err)
	}
	if int(in.Index) >= len(prev.Outputs) {
		return 0, fmt.Errorf("assembler: input %s: %w", in, ledger.ErrNotFound)
	}
	out := prev.Outputs[in.Index]
	if out.Lock.CodeHash != owner.CodeHash || out.Lock.HashType != owner.HashType || !bytes.Equal(out.Lock.Args, owner.Args) {
		return 0, fmt.Errorf("%w: %s", ErrNotOwner, in)
	}
	return out.Capacity, nil
}

// VerifyWitnessSignature checks the slot-0 signature of a committed
// transaction against the devnet owner lock of the given algorithm.
func VerifyWitnessSignature(tx *ledger.Transaction, alg string, pub []byte) bool {
	sig, ok := tx.Witness(0)
	if !ok {
		return false
	}
	hash, err := ledger.ComputeHash(tx)
	if err != nil {
		return false
	}
	return keys.Verify(alg, pub, hash[:], sig)
}
