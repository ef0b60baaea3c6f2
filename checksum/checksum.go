// Package checksum implements the resumable Adler-32 used by CKBFS records.
//
// A checksum value doubles as the engine state: feeding more bytes into the
// checksum of Y yields the checksum of Y followed by those bytes.
package checksum

const (
	// Mod is the Adler-32 modulus.
	Mod = 65521
	// Initial is the checksum of the empty input.
	Initial uint32 = 1

	// nmax is the largest n such that 255n(n+1)/2 + (n+1)(Mod-1) fits in 32 bits,
	// so reduction can be deferred for that many bytes.
	nmax = 5552
)

// State exposes the two Adler-32 accumulators packed in a checksum.
type State uint32

func (s State) A() uint32 { return uint32(s) & 0xffff }
func (s State) B() uint32 { return uint32(s) >> 16 }

// Calculate returns the Adler-32 of data.
func Calculate(data []byte) uint32 {
	return Resume(Initial, data)
}

// Resume continues from a previous checksum as if data had been appended to
// the stream that produced it.
func Resume(prev uint32, data []byte) uint32 {
	s := State(prev)
	a, b := s.A(), s.B()
	for len(data) > 0 {
		n := len(data)
		if n > nmax {
			n = nmax
		}
		for _, c := range data[:n] {
			a += uint32(c)
			b += a
		}
		a %= Mod
		b %= Mod
		data = data[n:]
	}
	return b<<16 | a
}

// Verify reports whether data checksums to expected.
func Verify(data []byte, expected uint32) bool {
	return Calculate(data) == expected
}
