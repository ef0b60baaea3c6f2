// Package chunk splits content into witness-sized pieces and joins them back.
package chunk

import (
	"fmt"

	"xdao.co/ckbfs/ckbfs"
)

// DefaultSize is the default chunk size in bytes (30 KiB).
const DefaultSize = ckbfs.DefaultChunkSize

// Split cuts data into consecutive pieces of size bytes; the last may be
// shorter. Empty data yields no chunks. Chunks alias data.
func Split(data []byte, size int) ([][]byte, error) {
	if size <= 0 {
		return nil, ckbfs.NewError(ckbfs.KindInvalidArgument, "CKBFS-CHUNK-001", fmt.Sprintf("chunk size must be positive, got %d", size))
	}
	n := len(data) / size
	if len(data)%size != 0 {
		n++
	}
	out := make([][]byte, 0, n)
	// Compare against the remaining length; start+size may overflow when size
	// is near math.MaxInt.
	for start := 0; start < len(data); {
		if len(data)-start <= size {
			out = append(out, data[start:len(data):len(data)])
			break
		}
		end := start + size
		out = append(out, data[start:end:end])
		start = end
	}
	return out, nil
}

// Join concatenates chunks in order.
func Join(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
