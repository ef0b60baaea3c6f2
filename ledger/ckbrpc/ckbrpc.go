// Package ckbrpc reads transactions from a CKB node over its JSON-RPC API.
//
// The adapter is read-only. Transaction hashes are whatever the node reports;
// they are not recomputed locally because the node hashes the molecule
// serialization rather than this module's canonical encoding.
package ckbrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nervosnetwork/ckb-sdk-go/v2/rpc"
	"github.com/nervosnetwork/ckb-sdk-go/v2/types"

	"xdao.co/ckbfs/ledger"
)

// Node is a ledger.Ledger view over a CKB node.
type Node struct {
	client  rpc.Client
	timeout time.Duration
}

var _ ledger.Ledger = (*Node)(nil)

type Options struct {
	// URL is the node RPC endpoint, e.g. http://127.0.0.1:8114.
	URL string
	// Timeout applies per request when non-zero.
	Timeout time.Duration
}

func New(opts Options) (*Node, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("ckbrpc: node URL is required")
	}
	client, err := rpc.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ckbrpc: dial %s: %w", url, err)
	}
	return &Node{client: client, timeout: opts.Timeout}, nil
}

func (n *Node) Close() error {
	n.client.Close()
	return nil
}

// Commit is not supported; publishing to a live chain goes through the
// node's own transaction pool tooling.
func (n *Node) Commit(context.Context, *ledger.Transaction) (ledger.TxHash, error) {
	return ledger.ZeroHash, ledger.ErrReadOnly
}

func (n *Node) FetchTransaction(ctx context.Context, hash ledger.TxHash) (*ledger.Transaction, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	res, err := n.client.GetTransaction(ctx, types.Hash(hash))
	if err != nil {
		return nil, fmt.Errorf("ckbrpc: get_transaction %s: %w", hash, err)
	}
	// Unknown hashes come back as a null result or a null transaction with
	// status "unknown", depending on the node version.
	if res == nil || res.Transaction == nil {
		return nil, ledger.ErrNotFound
	}
	return toLedger(res.Transaction)
}

func (n *Node) Has(ctx context.Context, hash ledger.TxHash) bool {
	_, err := n.FetchTransaction(ctx, hash)
	return err == nil
}

// Script hash types as numbered by the node's molecule schema.
var hashTypes = map[string]uint8{
	"data":  0,
	"type":  1,
	"data1": 2,
	"data2": 4,
}

func toScript(s *types.Script) (ledger.Script, error) {
	if s == nil {
		return ledger.Script{}, errors.New("ckbrpc: missing script")
	}
	ht, ok := hashTypes[string(s.HashType)]
	if !ok {
		return ledger.Script{}, fmt.Errorf("ckbrpc: unknown hash_type %q", s.HashType)
	}
	return ledger.Script{CodeHash: ledger.TxHash(s.CodeHash), HashType: ht, Args: []byte(s.Args)}, nil
}

func toLedger(t *types.Transaction) (*ledger.Transaction, error) {
	tx := &ledger.Transaction{
		Inputs:      make([]ledger.OutPoint, 0, len(t.Inputs)),
		Outputs:     make([]ledger.CellOutput, 0, len(t.Outputs)),
		OutputsData: make([][]byte, 0, len(t.OutputsData)),
		Witnesses:   make([][]byte, 0, len(t.Witnesses)),
	}
	for i, in := range t.Inputs {
		if in == nil || in.PreviousOutput == nil {
			return nil, fmt.Errorf("ckbrpc: input %d has no previous output", i)
		}
		tx.Inputs = append(tx.Inputs, ledger.OutPoint{
			TxHash: ledger.TxHash(in.PreviousOutput.TxHash),
			Index:  uint32(in.PreviousOutput.Index),
		})
	}
	for i, out := range t.Outputs {
		if out == nil {
			return nil, fmt.Errorf("ckbrpc: output %d is null", i)
		}
		lock, err := toScript(out.Lock)
		if err != nil {
			return nil, fmt.Errorf("ckbrpc: output %d lock: %w", i, err)
		}
		cell := ledger.CellOutput{Capacity: out.Capacity, Lock: lock}
		if out.Type != nil {
			typ, err := toScript(out.Type)
			if err != nil {
				return nil, fmt.Errorf("ckbrpc: output %d type: %w", i, err)
			}
			cell.Type = &typ
		}
		tx.Outputs = append(tx.Outputs, cell)
	}
	for _, d := range t.OutputsData {
		tx.OutputsData = append(tx.OutputsData, []byte(d))
	}
	for _, w := range t.Witnesses {
		tx.Witnesses = append(tx.Witnesses, []byte(w))
	}
	return tx, nil
}
