package ckbfs

import (
	"errors"
	"fmt"
)

// Pack serializes a record in its version's layout.
func Pack(r Record) ([]byte, error) {
	switch r := r.(type) {
	case RecordV1:
		links := make([][]byte, 0, len(r.BackLinks))
		for _, bl := range r.BackLinks {
			links = append(links, packTable(bl.TxHash[:], packU32(bl.Index), packU32(bl.Checksum)))
		}
		return packTable(
			packU32(r.Index),
			packU32(r.Checksum),
			packBytes([]byte(r.ContentType)),
			packBytes([]byte(r.Filename)),
			packTable(links...),
		), nil
	case RecordV2:
		links := make([][]byte, 0, len(r.BackLinks))
		for _, bl := range r.BackLinks {
			links = append(links, packTable(bl.TxHash[:], packIndexes(bl.Indexes), packU32(bl.Checksum)))
		}
		return packTable(
			packIndexes(r.Indexes),
			packU32(r.Checksum),
			packBytes([]byte(r.ContentType)),
			packBytes([]byte(r.Filename)),
			packTable(links...),
		), nil
	case RecordV3:
		return packTable(
			packU32(r.Index),
			packU32(r.Checksum),
			packBytes([]byte(r.ContentType)),
			packBytes([]byte(r.Filename)),
		), nil
	case nil:
		return nil, NewError(KindInvalidArgument, "CKBFS-CELL-100", "nil record")
	default:
		return nil, NewError(KindInvalidArgument, "CKBFS-CELL-100", fmt.Sprintf("unsupported record type %T", r))
	}
}

// Unpack decodes data as a record of version v. It fails with KindCodec when
// the bytes do not match that version's layout exactly.
func Unpack(data []byte, v Version) (Record, error) {
	switch v {
	case V1:
		return unpackV1(data)
	case V2:
		return unpackV2(data)
	case V3:
		return unpackV3(data)
	default:
		return nil, NewError(KindInvalidArgument, "CKBFS-CFG-001", "unknown protocol version")
	}
}

// UnpackAny tries each version in order and returns the first that decodes.
// A nil order means DefaultProbeOrder().
//
// A V1 record whose index is 0 and whose backlinks all use index 0 is also a
// valid V2 record with empty index lists. Such a V2 decode carries no content
// pointer, so when V1 is also probed and decodes, the V1 reading wins.
func UnpackAny(data []byte, order []Version) (Record, error) {
	if len(order) == 0 {
		order = DefaultProbeOrder()
	}
	var errs []error
	for i, v := range order {
		r, err := Unpack(data, v)
		if err != nil {
			if !IsKind(err, KindCodec) {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		if r2, ok := r.(RecordV2); ok && len(r2.Indexes) == 0 && probes(order[i+1:], V1) {
			if r1, err := unpackV1(data); err == nil {
				return r1, nil
			}
		}
		return r, nil
	}
	return nil, &Error{
		Kind:    KindCodec,
		RuleID:  "CKBFS-CELL-010",
		Message: fmt.Sprintf("cell data matches none of %v", order),
		Cause:   errors.Join(errs...),
	}
}

func probes(order []Version, v Version) bool {
	for _, o := range order {
		if o == v {
			return true
		}
	}
	return false
}

func unpackV1(data []byte) (Record, error) {
	f, err := unpackTable(data, 5, "v1 record")
	if err != nil {
		return nil, err
	}
	var r RecordV1
	if r.Index, err = unpackU32(f[0], "v1 index"); err != nil {
		return nil, err
	}
	if r.Checksum, err = unpackU32(f[1], "v1 checksum"); err != nil {
		return nil, err
	}
	if r.ContentType, err = unpackBytes(f[2], "v1 content_type"); err != nil {
		return nil, err
	}
	if r.Filename, err = unpackBytes(f[3], "v1 filename"); err != nil {
		return nil, err
	}
	items, err := unpackTable(f[4], -1, "v1 backlinks")
	if err != nil {
		return nil, err
	}
	r.BackLinks = make([]BackLinkV1, 0, len(items))
	for _, item := range items {
		bf, err := unpackTable(item, 3, "v1 backlink")
		if err != nil {
			return nil, err
		}
		var bl BackLinkV1
		if bl.TxHash, err = unpackHash(bf[0], "v1 backlink tx_hash"); err != nil {
			return nil, err
		}
		if bl.Index, err = unpackU32(bf[1], "v1 backlink index"); err != nil {
			return nil, err
		}
		if bl.Checksum, err = unpackU32(bf[2], "v1 backlink checksum"); err != nil {
			return nil, err
		}
		r.BackLinks = append(r.BackLinks, bl)
	}
	return r, nil
}

func unpackV2(data []byte) (Record, error) {
	f, err := unpackTable(data, 5, "v2 record")
	if err != nil {
		return nil, err
	}
	var r RecordV2
	if r.Indexes, err = unpackIndexes(f[0], "v2 indexes"); err != nil {
		return nil, err
	}
	if r.Checksum, err = unpackU32(f[1], "v2 checksum"); err != nil {
		return nil, err
	}
	if r.ContentType, err = unpackBytes(f[2], "v2 content_type"); err != nil {
		return nil, err
	}
	if r.Filename, err = unpackBytes(f[3], "v2 filename"); err != nil {
		return nil, err
	}
	items, err := unpackTable(f[4], -1, "v2 backlinks")
	if err != nil {
		return nil, err
	}
	r.BackLinks = make([]BackLinkV2, 0, len(items))
	for _, item := range items {
		bf, err := unpackTable(item, 3, "v2 backlink")
		if err != nil {
			return nil, err
		}
		var bl BackLinkV2
		if bl.TxHash, err = unpackHash(bf[0], "v2 backlink tx_hash"); err != nil {
			return nil, err
		}
		if bl.Indexes, err = unpackIndexes(bf[1], "v2 backlink indexes"); err != nil {
			return nil, err
		}
		if bl.Checksum, err = unpackU32(bf[2], "v2 backlink checksum"); err != nil {
			return nil, err
		}
		r.BackLinks = append(r.BackLinks, bl)
	}
	return r, nil
}

func unpackV3(data []byte) (Record, error) {
	f, err := unpackTable(data, 4, "v3 record")
	if err != nil {
		return nil, err
	}
	var r RecordV3
	if r.Index, err = unpackU32(f[0], "v3 index"); err != nil {
		return nil, err
	}
	if r.Checksum, err = unpackU32(f[1], "v3 checksum"); err != nil {
		return nil, err
	}
	if r.ContentType, err = unpackBytes(f[2], "v3 content_type"); err != nil {
		return nil, err
	}
	if r.Filename, err = unpackBytes(f[3], "v3 filename"); err != nil {
		return nil, err
	}
	return r, nil
}
