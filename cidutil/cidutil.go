package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data. It
// identifies reconstructed file content independently of the chain it was
// read from.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// TxCID wraps an already computed blake2b-256 transaction hash as a CIDv1.
func TxCID(hash [32]byte) (cid.Cid, error) {
	mh, err := multihash.Encode(hash[:], multihash.BLAKE2B_MIN+31)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// TxHashFromCID is the inverse of TxCID.
func TxHashFromCID(id cid.Cid) ([32]byte, bool) {
	var out [32]byte
	dec, err := multihash.Decode(id.Hash())
	if err != nil || dec.Code != multihash.BLAKE2B_MIN+31 || len(dec.Digest) != len(out) {
		return out, false
	}
	copy(out[:], dec.Digest)
	return out, true
}
