package resolver

import (
	"xdao.co/ckbfs/cidutil"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
)

// Hop is one transaction's contribution to the reconstructed file.
type Hop struct {
	TxHash ledger.TxHash `json:"txHash"`
	// Indexes are the witness slots read, in content order.
	Indexes []uint32 `json:"indexes"`
	Bytes   int      `json:"bytes"`
}

// Warning records damage tolerated in permissive mode.
type Warning struct {
	TxHash  ledger.TxHash `json:"txHash"`
	Index   uint32        `json:"index"`
	RuleID  string        `json:"ruleId"`
	Message string        `json:"message"`
}

// Result is a reconstructed file. Hops are oldest first.
type Result struct {
	Content  []byte
	Record   ckbfs.Record
	Version  ckbfs.Version
	Checksum uint32
	// Verified is false when permissive mode tolerated a skipped slot or a
	// checksum mismatch.
	Verified bool
	Hops     []Hop
	Warnings []Warning
}

// ContentCID returns the CIDv1 (raw, sha2-256) of the reconstructed content.
func (r *Result) ContentCID() (string, error) {
	id, err := cidutil.CIDv1RawSHA256CID(r.Content)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
