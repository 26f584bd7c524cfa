package buffer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tuneinsight/rnsbfv/utils"
)

// ReadUint8 reads a byte from r into c.
func ReadUint8(r Reader, c *uint8) (n int, err error) {

	if c == nil {
		return 0, fmt.Errorf("cannot ReadUint8: c is nil")
	}

	var bb [1]byte
	if n, err = io.ReadFull(r, bb[:]); err != nil {
		return
	}

	*c = bb[0]
	return
}

// ReadUint64 reads a little-endian uint64 from r into c.
func ReadUint64(r Reader, c *uint64) (n int, err error) {

	if c == nil {
		return 0, fmt.Errorf("cannot ReadUint64: c is nil")
	}

	var bb [8]byte
	if n, err = io.ReadFull(r, bb[:]); err != nil {
		return
	}

	*c = binary.LittleEndian.Uint64(bb[:])
	return
}

// ReadUint64Slice fills c with little-endian uint64 read from r,
// decoding directly from the internal buffer of r.
func ReadUint64Slice(r Reader, c []uint64) (n int, err error) {

	for len(c) > 0 {

		size := utils.Min(r.Size(), len(c)<<3)

		if size < 8 {
			return n, fmt.Errorf("cannot ReadUint64Slice: %w", io.ErrUnexpectedEOF)
		}

		var slice []byte
		if slice, err = r.Peek(size &^ 7); err != nil {
			return
		}

		chunk := len(slice) >> 3
		for i := 0; i < chunk; i++ {
			c[i] = binary.LittleEndian.Uint64(slice[i<<3:])
		}

		var inc int
		inc, err = r.Discard(chunk << 3)
		n += inc

		if err != nil {
			return
		}

		c = c[chunk:]
	}

	return
}
