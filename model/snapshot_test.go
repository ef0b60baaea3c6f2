package model

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/resolver"
)

func TestSnapshot_RecordView_JSONShape(t *testing.T) {
	ref := ckbfs.Ref{TxHash: ledger.TxHash{0xab}, Index: 0}
	rec := ckbfs.RecordV1{
		Index:       1,
		Checksum:    0x11e60398,
		ContentType: "text/plain",
		Filename:    "a.txt",
		BackLinks:   []ckbfs.BackLinkV1{{TxHash: ledger.TxHash{0x01}, Index: 2, Checksum: 7}},
	}

	b, err := json.MarshalIndent(FromRecord(&ref, rec), "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent failed: %v", err)
	}

	const want = "{\n" +
		"  \"ref\": \"ckbfs://0xab00000000000000000000000000000000000000000000000000000000000000:0\",\n" +
		"  \"version\": \"v1\",\n" +
		"  \"indexes\": [\n" +
		"    1\n" +
		"  ],\n" +
		"  \"checksum\": 300286872,\n" +
		"  \"contentType\": \"text/plain\",\n" +
		"  \"filename\": \"a.txt\",\n" +
		"  \"backlinks\": [\n" +
		"    {\n" +
		"      \"txHash\": \"0x0100000000000000000000000000000000000000000000000000000000000000\",\n" +
		"      \"index\": 2,\n" +
		"      \"checksum\": 7\n" +
		"    }\n" +
		"  ]\n" +
		"}"

	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", string(b))
	}
}

func TestSnapshot_ReconstructionReport_JSONShape(t *testing.T) {
	rec := ckbfs.RecordV3{Index: 1, Checksum: 0x062c0215, Filename: "hello"}
	res := &resolver.Result{
		Content:  []byte("hello"),
		Record:   rec,
		Version:  ckbfs.V3,
		Checksum: rec.Checksum,
		Verified: true,
		Hops:     []resolver.Hop{{TxHash: ledger.TxHash{0x02}, Indexes: []uint32{1}, Bytes: 5}},
	}
	report, err := FromResult(ckbfs.Ref{TxHash: ledger.TxHash{0x02}}, res)
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}
	wantCID, err := res.ContentCID()
	if err != nil {
		t.Fatalf("ContentCID failed: %v", err)
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent failed: %v", err)
	}

	want := "{\n" +
		"  \"record\": {\n" +
		"    \"ref\": \"ckbfs://0x0200000000000000000000000000000000000000000000000000000000000000:0\",\n" +
		"    \"version\": \"v3\",\n" +
		"    \"indexes\": [\n" +
		"      1\n" +
		"    ],\n" +
		"    \"checksum\": 103547413,\n" +
		"    \"contentType\": \"\",\n" +
		"    \"filename\": \"hello\"\n" +
		"  },\n" +
		"  \"contentCID\": \"" + wantCID + "\",\n" +
		"  \"size\": 5,\n" +
		"  \"checksum\": 103547413,\n" +
		"  \"verified\": true,\n" +
		"  \"hops\": [\n" +
		"    {\n" +
		"      \"txHash\": \"0x0200000000000000000000000000000000000000000000000000000000000000\",\n" +
		"      \"indexes\": [\n" +
		"        1\n" +
		"      ],\n" +
		"      \"bytes\": 5\n" +
		"    }\n" +
		"  ],\n" +
		"  \"warnings\": []\n" +
		"}"

	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", string(b))
	}
}

func TestFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code ErrorCode
		rule string
	}{
		{"kind", ckbfs.NewError(ckbfs.KindChecksumMismatch, "CKBFS-SUM-001", "bad"), ErrChecksumMismatch, "CKBFS-SUM-001"},
		{"wrapped kind", fmt.Errorf("get: %w", ckbfs.NewError(ckbfs.KindChainBroken, "CKBFS-CHAIN-004", "cycle")), ErrChainBroken, "CKBFS-CHAIN-004"},
		{"ledger not found", fmt.Errorf("fetch: %w", ledger.ErrNotFound), ErrNotFound, ""},
		{"canceled", context.Canceled, ErrCanceled, ""},
		{"other", fmt.Errorf("boom"), ErrInternal, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ce := FromError(tc.err)
			if ce.Code != tc.code || ce.RuleID != tc.rule {
				t.Fatalf("FromError(%v) = %+v, want code=%s rule=%q", tc.err, ce, tc.code, tc.rule)
			}
		})
	}
	if FromError(nil) != nil {
		t.Fatalf("FromError(nil) should be nil")
	}
}
