package ckbfs

import "xdao.co/ckbfs/ledger"

// Record is the metadata a CKBFS cell carries in its output data.
//
// Each protocol version has its own concrete type, so a V3 record cannot
// carry a backlink list and a V1 record cannot name several witnesses.
type Record interface {
	Version() Version
	// Sum is the Adler-32 of the whole file as of this version.
	Sum() uint32
	Meta() (contentType, filename string)
	// WitnessIndexes lists the witness slots that hold this version's
	// content, in order. For V3 it is the single head slot.
	WitnessIndexes() []uint32

	isRecord()
}

// BackLinkV1 points at the transaction holding an earlier V1 version.
// Checksum is the file checksum before that version's content was appended.
type BackLinkV1 struct {
	TxHash   ledger.TxHash `json:"txHash"`
	Index    uint32        `json:"index"`
	Checksum uint32        `json:"checksum"`
}

// BackLinkV2 points at the transaction holding an earlier V2 version.
type BackLinkV2 struct {
	TxHash   ledger.TxHash `json:"txHash"`
	Indexes  []uint32      `json:"indexes"`
	Checksum uint32        `json:"checksum"`
}

// RecordV1 keeps a single witness index and an oldest-first backlink list.
type RecordV1 struct {
	Index       uint32       `json:"index"`
	Checksum    uint32       `json:"checksum"`
	ContentType string       `json:"contentType"`
	Filename    string       `json:"filename"`
	BackLinks   []BackLinkV1 `json:"backLinks"`
}

// RecordV2 names every witness slot holding content for this version.
type RecordV2 struct {
	Indexes     []uint32     `json:"indexes"`
	Checksum    uint32       `json:"checksum"`
	ContentType string       `json:"contentType"`
	Filename    string       `json:"filename"`
	BackLinks   []BackLinkV2 `json:"backLinks"`
}

// RecordV3 points at the head witness; history lives in the witness chain.
type RecordV3 struct {
	Index       uint32 `json:"index"`
	Checksum    uint32 `json:"checksum"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
}

func (RecordV1) Version() Version { return V1 }
func (RecordV2) Version() Version { return V2 }
func (RecordV3) Version() Version { return V3 }

func (r RecordV1) Sum() uint32 { return r.Checksum }
func (r RecordV2) Sum() uint32 { return r.Checksum }
func (r RecordV3) Sum() uint32 { return r.Checksum }

func (r RecordV1) Meta() (string, string) { return r.ContentType, r.Filename }
func (r RecordV2) Meta() (string, string) { return r.ContentType, r.Filename }
func (r RecordV3) Meta() (string, string) { return r.ContentType, r.Filename }

func (r RecordV1) WitnessIndexes() []uint32 { return []uint32{r.Index} }
func (r RecordV2) WitnessIndexes() []uint32 { return append([]uint32(nil), r.Indexes...) }
func (r RecordV3) WitnessIndexes() []uint32 { return []uint32{r.Index} }

func (RecordV1) isRecord() {}
func (RecordV2) isRecord() {}
func (RecordV3) isRecord() {}

// Fields is the loose, version-agnostic shape callers may build a record
// from. Index and Indexes are interchangeable for V1/V2; see GetIndex and
// GetIndexes.
type Fields struct {
	Index       *uint32
	Indexes     []uint32
	Checksum    uint32
	ContentType string
	Filename    string
	BackLinks   []BackLink
}

// BackLink is the loose form of a V1 or V2 backlink.
type BackLink struct {
	TxHash   ledger.TxHash
	Index    *uint32
	Indexes  []uint32
	Checksum uint32
}

// GetIndex prefers the array form if present, else the scalar, else zero.
func GetIndex(index *uint32, indexes []uint32) uint32 {
	if len(indexes) > 0 {
		return indexes[0]
	}
	if index != nil {
		return *index
	}
	return 0
}

// GetIndexes prefers the array form if present, else wraps the scalar,
// else returns an empty list.
func GetIndexes(index *uint32, indexes []uint32) []uint32 {
	if len(indexes) > 0 {
		return append([]uint32(nil), indexes...)
	}
	if index != nil {
		return []uint32{*index}
	}
	return []uint32{}
}

// Build resolves loose fields into the canonical record for version v.
func (f Fields) Build(v Version) (Record, error) {
	switch v {
	case V1:
		r := RecordV1{
			Index:       GetIndex(f.Index, f.Indexes),
			Checksum:    f.Checksum,
			ContentType: f.ContentType,
			Filename:    f.Filename,
			BackLinks:   make([]BackLinkV1, 0, len(f.BackLinks)),
		}
		for _, bl := range f.BackLinks {
			r.BackLinks = append(r.BackLinks, BackLinkV1{
				TxHash:   bl.TxHash,
				Index:    GetIndex(bl.Index, bl.Indexes),
				Checksum: bl.Checksum,
			})
		}
		return r, nil
	case V2:
		r := RecordV2{
			Indexes:     GetIndexes(f.Index, f.Indexes),
			Checksum:    f.Checksum,
			ContentType: f.ContentType,
			Filename:    f.Filename,
			BackLinks:   make([]BackLinkV2, 0, len(f.BackLinks)),
		}
		for _, bl := range f.BackLinks {
			r.BackLinks = append(r.BackLinks, BackLinkV2{
				TxHash:   bl.TxHash,
				Indexes:  GetIndexes(bl.Index, bl.Indexes),
				Checksum: bl.Checksum,
			})
		}
		return r, nil
	case V3:
		if len(f.BackLinks) > 0 {
			return nil, NewError(KindInvalidArgument, "CKBFS-CELL-101", "v3 records carry no backlinks")
		}
		return RecordV3{
			Index:       GetIndex(f.Index, f.Indexes),
			Checksum:    f.Checksum,
			ContentType: f.ContentType,
			Filename:    f.Filename,
		}, nil
	default:
		return nil, NewError(KindInvalidArgument, "CKBFS-CFG-001", "unknown protocol version")
	}
}
