package model

import (
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/resolver"
)

// BackLinkView is a record's pointer to an earlier file version.
// Index is set for v1 backlinks, Indexes for v2.
type BackLinkView struct {
	TxHash   string   `json:"txHash"`
	Index    *uint32  `json:"index,omitempty"`
	Indexes  []uint32 `json:"indexes,omitempty"`
	Checksum uint32   `json:"checksum"`
}

// RecordView is the JSON projection of a decoded cell record.
type RecordView struct {
	Ref         string         `json:"ref,omitempty"`
	Version     string         `json:"version"`
	Indexes     []uint32       `json:"indexes"`
	Checksum    uint32         `json:"checksum"`
	ContentType string         `json:"contentType"`
	Filename    string         `json:"filename"`
	BackLinks   []BackLinkView `json:"backlinks,omitempty"`
}

type HopView struct {
	TxHash  string   `json:"txHash"`
	Indexes []uint32 `json:"indexes"`
	Bytes   int      `json:"bytes"`
}

type WarningView struct {
	TxHash  string `json:"txHash"`
	Index   uint32 `json:"index"`
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}

// ReconstructionReport summarizes a resolved file without its content.
type ReconstructionReport struct {
	Record     RecordView    `json:"record"`
	ContentCID string        `json:"contentCID"`
	Size       int           `json:"size"`
	Checksum   uint32        `json:"checksum"`
	Verified   bool          `json:"verified"`
	Hops       []HopView     `json:"hops"`
	Warnings   []WarningView `json:"warnings"`
}

// FromRecord projects rec, optionally labelled with the reference it was read from.
func FromRecord(ref *ckbfs.Ref, rec ckbfs.Record) RecordView {
	ct, fn := rec.Meta()
	out := RecordView{
		Version:     rec.Version().String(),
		Indexes:     rec.WitnessIndexes(),
		Checksum:    rec.Sum(),
		ContentType: ct,
		Filename:    fn,
	}
	if ref != nil {
		out.Ref = ref.String()
	}
	switch r := rec.(type) {
	case ckbfs.RecordV1:
		for _, bl := range r.BackLinks {
			idx := bl.Index
			out.BackLinks = append(out.BackLinks, BackLinkView{TxHash: bl.TxHash.String(), Index: &idx, Checksum: bl.Checksum})
		}
	case ckbfs.RecordV2:
		for _, bl := range r.BackLinks {
			out.BackLinks = append(out.BackLinks, BackLinkView{
				TxHash:   bl.TxHash.String(),
				Indexes:  append([]uint32{}, bl.Indexes...),
				Checksum: bl.Checksum,
			})
		}
	}
	return out
}

// FromResult builds the report for a resolved file.
func FromResult(ref ckbfs.Ref, res *resolver.Result) (*ReconstructionReport, error) {
	id, err := res.ContentCID()
	if err != nil {
		return nil, FromError(err)
	}
	out := &ReconstructionReport{
		Record:     FromRecord(&ref, res.Record),
		ContentCID: id,
		Size:       len(res.Content),
		Checksum:   res.Checksum,
		Verified:   res.Verified,
		Hops:       make([]HopView, 0, len(res.Hops)),
		Warnings:   make([]WarningView, 0, len(res.Warnings)),
	}
	for _, h := range res.Hops {
		out.Hops = append(out.Hops, HopView{TxHash: h.TxHash.String(), Indexes: append([]uint32{}, h.Indexes...), Bytes: h.Bytes})
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, WarningView{TxHash: w.TxHash.String(), Index: w.Index, RuleID: w.RuleID, Message: w.Message})
	}
	return out, nil
}
