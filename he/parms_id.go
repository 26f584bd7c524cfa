package he

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/tuneinsight/rnsbfv/ring"
	"github.com/tuneinsight/rnsbfv/utils/buffer"
)

// ParmsID is the 256-bit content hash identifying a set of [EncryptionParameters].
// The zero value is reserved and is never the identifier of a parameter set.
type ParmsID [4]uint64

// IsZero returns true if id is the reserved zero identifier.
func (id ParmsID) IsZero() bool {
	return id == ParmsID{}
}

func (id ParmsID) String() string {
	buf := make([]byte, 32)
	for i := range id {
		binary.BigEndian.PutUint64(buf[8*i:], id[i])
	}
	return hex.EncodeToString(buf)
}

// computeParmsID hashes (scheme, N, q_0, ..., q_{k-1}, t) with BLAKE3,
// each integer being written in little-endian on 8 bytes and the scheme on 1 byte.
func computeParmsID(scheme Scheme, N int, coeffModulus []ring.Modulus, plainModulus ring.Modulus) (id ParmsID) {

	buf := buffer.NewBufferSize(1 + 8*(len(coeffModulus)+2))

	// Writes on a buffer of the exact size cannot fail.
	if _, err := buffer.WriteUint8(buf, uint8(scheme)); err != nil {
		panic(err)
	}
	if _, err := buffer.WriteUint64(buf, uint64(N)); err != nil {
		panic(err)
	}
	if _, err := buffer.WriteUint64Slice(buf, ring.ModuliValues(coeffModulus)); err != nil {
		panic(err)
	}
	if _, err := buffer.WriteUint64(buf, plainModulus.Value()); err != nil {
		panic(err)
	}

	hasher := blake3.New()
	hasher.Write(buf.Bytes())
	digest := hasher.Sum(nil)

	for i := range id {
		id[i] = binary.LittleEndian.Uint64(digest[8*i:])
	}

	if id.IsZero() {
		panic(fmt.Errorf("cannot computeParmsID: parameters hash to the reserved zero identifier"))
	}

	return
}
