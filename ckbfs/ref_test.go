package ckbfs

import (
	"strings"
	"testing"

	"xdao.co/ckbfs/cidutil"
	"xdao.co/ckbfs/ledger"
)

func TestParseRef(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	cases := []struct {
		in    string
		index uint32
	}{
		{"ckbfs://" + hash + ":3", 3},
		{hash + ":0", 0},
		{strings.TrimPrefix(hash, "0x"), 0},
	}
	for _, tc := range cases {
		r, err := ParseRef(tc.in)
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", tc.in, err)
		}
		if r.TxHash.String() != hash || r.Index != tc.index {
			t.Fatalf("ParseRef(%q) = %v", tc.in, r)
		}
	}

	r, _ := ParseRef(hash + ":7")
	if got := r.String(); got != "ckbfs://"+hash+":7" {
		t.Fatalf("String() = %q", got)
	}

	for _, bad := range []string{"", "ckbfs://0x12:1", hash + ":x", hash + ":-1"} {
		if _, err := ParseRef(bad); !IsKind(err, KindInvalidArgument) {
			t.Fatalf("ParseRef(%q): expected InvalidArgument, got %v", bad, err)
		}
	}
}

func TestParseRef_TransactionCID(t *testing.T) {
	hash, err := ledger.ParseTxHash(strings.Repeat("cd", 32))
	if err != nil {
		t.Fatalf("ParseTxHash: %v", err)
	}
	id, err := cidutil.TxCID(hash)
	if err != nil {
		t.Fatalf("TxCID: %v", err)
	}
	r, err := ParseRef(id.String() + ":2")
	if err != nil {
		t.Fatalf("ParseRef: %v", err)
	}
	if r.TxHash != hash || r.Index != 2 {
		t.Fatalf("ParseRef(cid) = %v", r)
	}

	content, err := cidutil.CIDv1RawSHA256CID([]byte("not a transaction"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if _, err := ParseRef(content.String()); !IsKind(err, KindInvalidArgument) {
		t.Fatalf("content CID accepted as a reference: %v", err)
	}
}
