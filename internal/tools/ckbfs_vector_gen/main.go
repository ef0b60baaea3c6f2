// Command ckbfs_vector_gen regenerates testdata/conformance/ckbfs/vectors.json.
//
//	go run ./internal/tools/ckbfs_vector_gen > testdata/conformance/ckbfs/vectors.json
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"

	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/witness"
)

type backLinkJSON struct {
	TxHash   ledger.TxHash `json:"txHash"`
	Indexes  []uint32      `json:"indexes"`
	Checksum uint32        `json:"checksum"`
}

type fieldsJSON struct {
	Indexes     []uint32       `json:"indexes"`
	Checksum    uint32         `json:"checksum"`
	ContentType string         `json:"contentType"`
	Filename    string         `json:"filename"`
	BackLinks   []backLinkJSON `json:"backlinks"`
}

type recordVector struct {
	Name    string        `json:"name"`
	Version ckbfs.Version `json:"version"`
	Fields  fieldsJSON    `json:"fields"`
	Hex     string        `json:"hex"`
}

type witnessVector struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Content string           `json:"content"`
	Prev    witness.Backlink `json:"prev"`
	Next    uint32           `json:"next"`
	Hex     string           `json:"hex"`
}

func sum(s string) uint32 { return checksum.Calculate([]byte(s)) }

func hash(b byte) ledger.TxHash {
	var h ledger.TxHash
	copy(h[:], bytes.Repeat([]byte{b}, len(h)))
	return h
}

func record(name string, v ckbfs.Version, f fieldsJSON) recordVector {
	if f.BackLinks == nil {
		f.BackLinks = []backLinkJSON{}
	}
	loose := ckbfs.Fields{Indexes: f.Indexes, Checksum: f.Checksum, ContentType: f.ContentType, Filename: f.Filename}
	for _, bl := range f.BackLinks {
		loose.BackLinks = append(loose.BackLinks, ckbfs.BackLink{TxHash: bl.TxHash, Indexes: bl.Indexes, Checksum: bl.Checksum})
	}
	rec, err := loose.Build(v)
	if err != nil {
		panic(err)
	}
	b, err := ckbfs.Pack(rec)
	if err != nil {
		panic(err)
	}
	return recordVector{Name: name, Version: v, Fields: f, Hex: hex.EncodeToString(b)}
}

func frame(name, kind, content string, prev witness.Backlink, next uint32) witnessVector {
	var b []byte
	switch kind {
	case "v1v2":
		b = witness.FrameV1V2([]byte(content))
	case "v3head":
		b = witness.FrameV3Head([]byte(content), prev, next)
	case "v3cont":
		b = witness.FrameV3Continuation([]byte(content), next)
	default:
		panic("unknown witness kind " + kind)
	}
	return witnessVector{Name: name, Kind: kind, Content: content, Prev: prev, Next: next, Hex: hex.EncodeToString(b)}
}

func main() {
	records := []recordVector{
		record("v1_single", ckbfs.V1, fieldsJSON{Indexes: []uint32{1}, Checksum: sum("hello"), ContentType: "text/plain", Filename: "hello.txt"}),
		// Also a valid v2 layout with empty indexes; detection must pick v1.
		record("v1_index_zero", ckbfs.V1, fieldsJSON{Indexes: []uint32{0}, Checksum: sum("x")}),
		record("v1_backlink", ckbfs.V1, fieldsJSON{
			Indexes: []uint32{1}, Checksum: sum("helloworld"), ContentType: "text/plain", Filename: "hello.txt",
			BackLinks: []backLinkJSON{{TxHash: hash(0x11), Indexes: []uint32{1}, Checksum: sum("hello")}},
		}),
		record("v2_multi", ckbfs.V2, fieldsJSON{Indexes: []uint32{1, 2, 3}, Checksum: sum("Wikipedia"), ContentType: "application/octet-stream", Filename: "wiki"}),
		record("v2_backlinks", ckbfs.V2, fieldsJSON{
			Indexes: []uint32{4}, Checksum: sum("abcdef"), Filename: "f",
			BackLinks: []backLinkJSON{
				{TxHash: hash(0x11), Indexes: []uint32{1, 2}, Checksum: sum("ab")},
				{TxHash: hash(0x22), Indexes: []uint32{3}, Checksum: sum("abcd")},
			},
		}),
		record("v3_head", ckbfs.V3, fieldsJSON{Indexes: []uint32{1}, Checksum: sum("hello"), ContentType: "image/png", Filename: "logo.png"}),
	}

	witnesses := []witnessVector{
		frame("v1v2_hello", "v1v2", "hello", witness.Backlink{}, 0),
		frame("v1v2_empty", "v1v2", "", witness.Backlink{}, 0),
		frame("v3_genesis_head", "v3head", "hello", witness.Backlink{}, 2),
		frame("v3_linked_head", "v3head", "world", witness.Backlink{TxHash: hash(0x22), WitnessIndex: 1, Checksum: sum("hello")}, 0),
		frame("v3_continuation", "v3cont", "more", witness.Backlink{}, 3),
		frame("v3_last_continuation", "v3cont", "end", witness.Backlink{}, 0),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Records   []recordVector  `json:"records"`
		Witnesses []witnessVector `json:"witnesses"`
	}{records, witnesses}); err != nil {
		panic(err)
	}
}
