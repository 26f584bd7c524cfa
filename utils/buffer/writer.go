package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/tuneinsight/rnsbfv/utils"
)

// reserve flushes w if fewer than size bytes are available.
func reserve(w Writer, size int, op string) (err error) {
	if w.Available() < size {
		if err = w.Flush(); err != nil {
			return
		}
		if w.Available() < size {
			return fmt.Errorf("cannot %s: available buffer is smaller than %d bytes even after flush", op, size)
		}
	}
	return
}

// WriteUint8 writes c to w.
func WriteUint8(w Writer, c uint8) (n int64, err error) {

	if err = reserve(w, 1, "WriteUint8"); err != nil {
		return
	}

	nint, err := w.Write(append(w.AvailableBuffer(), c))
	return int64(nint), err
}

// WriteUint64 writes c to w in little-endian.
func WriteUint64(w Writer, c uint64) (n int64, err error) {

	if err = reserve(w, 8, "WriteUint64"); err != nil {
		return
	}

	nint, err := w.Write(binary.LittleEndian.AppendUint64(w.AvailableBuffer(), c))
	return int64(nint), err
}

// WriteUint64Slice writes the elements of c to w in little-endian,
// flushing each time the internal buffer of w is full.
func WriteUint64Slice(w Writer, c []uint64) (n int64, err error) {

	for len(c) > 0 {

		if err = reserve(w, 8, "WriteUint64Slice"); err != nil {
			return
		}

		chunk := utils.Min(w.Available()>>3, len(c))

		buf := w.AvailableBuffer()
		for _, ci := range c[:chunk] {
			buf = binary.LittleEndian.AppendUint64(buf, ci)
		}

		var inc int
		inc, err = w.Write(buf)
		n += int64(inc)

		if err != nil {
			return
		}

		c = c[chunk:]
	}

	return
}
