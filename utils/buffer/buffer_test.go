package buffer

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {

	values := make([]uint64, 37)
	for i := range values {
		values[i] = uint64(i) * 0x0123456789abcdef
	}

	t.Run("Buffer", func(t *testing.T) {

		b := NewBufferSize(1 + 8 + 8*len(values))

		_, err := WriteUint8(b, 0xab)
		require.NoError(t, err)
		_, err = WriteUint64(b, 0x1122334455667788)
		require.NoError(t, err)
		n, err := WriteUint64Slice(b, values)
		require.NoError(t, err)
		require.Equal(t, int64(8*len(values)), n)
		require.Equal(t, 0, b.Available())
		require.Equal(t, []byte{0xab, 0x88, 0x77}, b.Bytes()[:3])

		_, err = WriteUint8(b, 0)
		require.Error(t, err)

		r := NewBuffer(b.Bytes())

		var c8 uint8
		_, err = ReadUint8(r, &c8)
		require.NoError(t, err)
		require.Equal(t, uint8(0xab), c8)

		var c64 uint64
		_, err = ReadUint64(r, &c64)
		require.NoError(t, err)
		require.Equal(t, uint64(0x1122334455667788), c64)

		got := make([]uint64, len(values))
		_, err = ReadUint64Slice(r, got)
		require.NoError(t, err)
		require.Equal(t, values, got)

		_, err = ReadUint64(r, &c64)
		require.Error(t, err)
		_, err = ReadUint64Slice(r, got)
		require.Error(t, err)
		_, err = ReadUint64(r, nil)
		require.Error(t, err)
	})

	t.Run("Bufio", func(t *testing.T) {

		// Buffers smaller than the slice force intermediate flushes and peeks.
		data := new(bytes.Buffer)
		w := bufio.NewWriterSize(data, 16)

		_, err := WriteUint64Slice(w, values)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
		require.Equal(t, 8*len(values), data.Len())

		r := bufio.NewReaderSize(data, 16)
		got := make([]uint64, len(values))
		n, err := ReadUint64Slice(r, got)
		require.NoError(t, err)
		require.Equal(t, 8*len(values), n)
		require.Equal(t, values, got)
	})
}
