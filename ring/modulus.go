// Package ring implements the word-size modular arithmetic, the NTT-friendly prime generation
// and the negacyclic number theoretic transform over Z_q[X]/(X^N+1) on which the RNS layer is built.
package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// MaxModulusBitCount is the largest bit-length of a [Modulus] value.
const MaxModulusBitCount = 61

// Modulus is a word-size modulus together with its Barrett reduction constant.
// The zero value is the zero sentinel, which represents an unset modulus.
// A Modulus is immutable and is passed by value.
type Modulus struct {
	value        uint64
	bitCount     int
	bredConstant [2]uint64
	isPrime      bool
}

// NewModulus returns a new [Modulus] of value q.
// It returns an error if q is 1 or has more than [MaxModulusBitCount] bits.
// The value 0 yields the zero sentinel.
func NewModulus(q uint64) (m Modulus, err error) {

	if q == 1 {
		return Modulus{}, fmt.Errorf("cannot NewModulus: value cannot be 1")
	}

	if bits.Len64(q) > MaxModulusBitCount {
		return Modulus{}, fmt.Errorf("cannot NewModulus: value %d has %d bits but at most %d are supported", q, bits.Len64(q), MaxModulusBitCount)
	}

	if q == 0 {
		return Modulus{}, nil
	}

	return Modulus{
		value:        q,
		bitCount:     bits.Len64(q),
		bredConstant: GenBRedConstant(q),
		isPrime:      IsPrime(q),
	}, nil
}

// NewModuli returns the moduli of the given values.
func NewModuli(q []uint64) (moduli []Modulus, err error) {
	moduli = make([]Modulus, len(q))
	for i := range q {
		if moduli[i], err = NewModulus(q[i]); err != nil {
			return nil, fmt.Errorf("cannot NewModuli: index %d: %w", i, err)
		}
	}
	return
}

// ModuliValues returns the values of the given moduli.
func ModuliValues(moduli []Modulus) (q []uint64) {
	q = make([]uint64, len(moduli))
	for i := range moduli {
		q[i] = moduli[i].value
	}
	return
}

// Value returns the value of the modulus.
func (m Modulus) Value() uint64 {
	return m.value
}

// BitCount returns the bit-length of the modulus.
func (m Modulus) BitCount() int {
	return m.bitCount
}

// IsZero returns true if m is the zero sentinel.
func (m Modulus) IsZero() bool {
	return m.value == 0
}

// IsPrime returns true if the modulus is a prime.
func (m Modulus) IsPrime() bool {
	return m.isPrime
}

// BRedConstant returns floor(2^128/q) as [hi, lo].
func (m Modulus) BRedConstant() [2]uint64 {
	return m.bredConstant
}

// BigInt returns the value of the modulus as a *big.Int.
func (m Modulus) BigInt() *big.Int {
	return new(big.Int).SetUint64(m.value)
}

func (m Modulus) String() string {
	return fmt.Sprintf("%d", m.value)
}

// Reduce returns x mod q.
func (m Modulus) Reduce(x uint64) uint64 {
	return BRedAdd(x, m.value, m.bredConstant)
}

// ReduceWide returns (hi * 2^64 + lo) mod q.
func (m Modulus) ReduceWide(hi, lo uint64) uint64 {
	return BRedWide(hi, lo, m.value, m.bredConstant)
}

// ReduceBig returns x mod q for x of any sign.
func (m Modulus) ReduceBig(x *big.Int) uint64 {
	return new(big.Int).Mod(x, m.BigInt()).Uint64()
}

// Add returns x + y mod q for x, y in [0, q).
func (m Modulus) Add(x, y uint64) uint64 {
	return CRed(x+y, m.value)
}

// Sub returns x - y mod q for x, y in [0, q).
func (m Modulus) Sub(x, y uint64) uint64 {
	return CRed(x+m.value-y, m.value)
}

// Neg returns -x mod q for x in [0, q).
func (m Modulus) Neg(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	return m.value - x
}

// Mul returns x * y mod q.
func (m Modulus) Mul(x, y uint64) uint64 {
	return BRed(x, y, m.value, m.bredConstant)
}

// MulOp returns x * y.Operand mod q for any 64-bit x.
func (m Modulus) MulOp(x uint64, y MulOperand) uint64 {
	return MulOp(x, y, m.value)
}

// MulAddOp returns x * y.Operand + z mod q for any 64-bit x and z in [0, q).
func (m Modulus) MulAddOp(x uint64, y MulOperand, z uint64) uint64 {
	return CRed(MulOp(x, y, m.value)+z, m.value)
}

// Exp returns x^e mod q.
func (m Modulus) Exp(x, e uint64) uint64 {
	return ModExp(x, e, m.value, m.bredConstant)
}

// Inverse returns x^-1 mod q and true, or 0 and false if x is not invertible mod q.
// The modulus does not need to be prime.
func (m Modulus) Inverse(x uint64) (uint64, bool) {
	if m.value == 0 {
		return 0, false
	}
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(m.Reduce(x)), m.BigInt())
	if inv == nil {
		return 0, false
	}
	return inv.Uint64(), true
}

// Equal returns true if both moduli have the same value.
func (m Modulus) Equal(other Modulus) bool {
	return m.value == other.value
}
