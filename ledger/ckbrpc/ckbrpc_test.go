package ckbrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/ckbfs/ledger"
)

const knownHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

const unknownHash = "0x5555555555555555555555555555555555555555555555555555555555555555"

const knownTx = `{
  "transaction": {
    "version": "0x0",
    "hash": "0x1111111111111111111111111111111111111111111111111111111111111111",
    "cell_deps": [],
    "header_deps": [],
    "inputs": [{"previous_output": {"tx_hash": "0x2222222222222222222222222222222222222222222222222222222222222222", "index": "0x1"}, "since": "0x0"}],
    "outputs": [{
      "capacity": "0x2540be400",
      "lock": {"code_hash": "0x3333333333333333333333333333333333333333333333333333333333333333", "hash_type": "type", "args": "0xabcd"},
      "type": {"code_hash": "0x4444444444444444444444444444444444444444444444444444444444444444", "hash_type": "data1", "args": "0x"}
    }],
    "outputs_data": ["0x0102"],
    "witnesses": ["0x", "0x434b42465300414243"]
  },
  "tx_status": {"status": "committed", "block_hash": null}
}`

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newNode(t *testing.T) *Node {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		reply := func(body string) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,` + body + `}`))
		}
		if req.Method != "get_transaction" || len(req.Params) == 0 {
			reply(`"error":{"code":-32601,"message":"method not found"}`)
			return
		}
		var hash string
		_ = json.Unmarshal(req.Params[0], &hash)
		switch strings.ToLower(hash) {
		case knownHash:
			reply(`"result":` + knownTx)
		case unknownHash:
			reply(`"result":{"transaction":null,"tx_status":{"status":"unknown","block_hash":null}}`)
		default:
			reply(`"result":null`)
		}
	}))
	t.Cleanup(srv.Close)

	n, err := New(Options{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestFetchTransaction(t *testing.T) {
	n := newNode(t)
	h, err := ledger.ParseTxHash(knownHash)
	require.NoError(t, err)

	tx, err := n.FetchTransaction(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 1)
	require.Equal(t, uint32(1), tx.Inputs[0].Index)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, uint64(10_000_000_000), tx.Outputs[0].Capacity)
	require.Equal(t, uint8(1), tx.Outputs[0].Lock.HashType)
	require.Equal(t, []byte{0xab, 0xcd}, tx.Outputs[0].Lock.Args)
	require.NotNil(t, tx.Outputs[0].Type)
	require.Equal(t, uint8(2), tx.Outputs[0].Type.HashType)
	require.Equal(t, [][]byte{{0x01, 0x02}}, tx.OutputsData)

	w, ok := tx.Witness(1)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(string(w), "CKBFS\x00"))
	require.True(t, n.Has(context.Background(), h))
}

func TestFetchTransaction_NotFound(t *testing.T) {
	n := newNode(t)
	_, err := n.FetchTransaction(context.Background(), ledger.TxHash{0x99})
	require.True(t, ledger.IsNotFound(err), "got %v", err)
	require.False(t, n.Has(context.Background(), ledger.TxHash{0x99}))

	unknown, err := ledger.ParseTxHash(unknownHash)
	require.NoError(t, err)
	_, err = n.FetchTransaction(context.Background(), unknown)
	require.True(t, ledger.IsNotFound(err), "got %v", err)
}

func TestCommit_ReadOnly(t *testing.T) {
	n := newNode(t)
	_, err := n.Commit(context.Background(), &ledger.Transaction{})
	require.True(t, errors.Is(err, ledger.ErrReadOnly))
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
