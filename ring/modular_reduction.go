package ring

import (
	"math/big"
	"math/bits"
)

//==========================
//=== BARRETT REDUCTION  ===
//==========================

// GenBRedConstant computes the constant floor(2^128/q) required
// for the Barrett reduction with a radix of 2^128, as [hi, lo].
func GenBRedConstant(q uint64) [2]uint64 {
	bigR := new(big.Int).Lsh(big.NewInt(1), 128)
	bigR.Quo(bigR, new(big.Int).SetUint64(q))

	mhi := new(big.Int).Rsh(bigR, 64).Uint64()
	mlo := bigR.Uint64()

	return [2]uint64{mhi, mlo}
}

// BRedAdd reduces a 64 bit integer by q.
func BRedAdd(x, q uint64, u [2]uint64) (r uint64) {
	s0, _ := bits.Mul64(x, u[0])
	r = x - s0*q
	if r >= q {
		r -= q
	}
	return
}

// BRed operates a 64x64 bit multiplication with
// a barrett reduction.
func BRed(x, y, q uint64, u [2]uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	return BRedWide(ahi, alo, q, u)
}

// BRedWide reduces the 128 bit integer ahi * 2^64 + alo by q.
func BRedWide(ahi, alo, q uint64, u [2]uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	// (alo*ulo)>>64

	lhi, _ = bits.Mul64(alo, u[1])

	// ((ahi*ulo + alo*uhi) + (alo*ulo))>>64

	mhi, mlo = bits.Mul64(alo, u[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, u[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	// (ahi*uhi) + (((ahi*ulo + alo*uhi) + (alo*ulo))>>64)

	s0 = ahi*u[0] + s1 + lhi

	r = alo - s0*q

	if r >= q {
		r -= q
	}

	return
}

//===============================
//==== CONDITIONAL REDUCTION ====
//===============================

// CRed reduce returns a mod q, where
// a is required to be in the range [0, 2q-1].
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

//============================
//=== SHOUP MULTIPLICATION ===
//============================

// MulOperand is a constant multiplicand w mod q stored together
// with floor(w * 2^64 / q), which turns x * w mod q into two
// word multiplications for any 64-bit x.
type MulOperand struct {
	Operand  uint64
	Quotient uint64
}

// NewMulOperand returns the [MulOperand] of w mod m.
// The modulus must not be the zero sentinel.
func NewMulOperand(w uint64, m Modulus) (op MulOperand) {
	op.Operand = m.Reduce(w)
	op.Quotient, _ = bits.Div64(op.Operand, 0, m.value)
	return
}

// MulOpLazy returns x * y.Operand mod q in [0, 2q-1].
func MulOpLazy(x uint64, y MulOperand, q uint64) uint64 {
	hi, _ := bits.Mul64(x, y.Quotient)
	return y.Operand*x - hi*q
}

// MulOp returns x * y.Operand mod q.
func MulOp(x uint64, y MulOperand, q uint64) uint64 {
	return CRed(MulOpLazy(x, y, q), q)
}

//=========================
//=== MODULAR EXPONENT  ===
//=========================

// ModExp performs the modular exponentiation x^e mod q,
// with u the Barrett constant of q.
func ModExp(x, e, q uint64, u [2]uint64) (result uint64) {
	result = 1
	x = BRedAdd(x, q, u)
	for i := e; i > 0; i >>= 1 {
		if i&1 == 1 {
			result = BRed(result, x, q, u)
		}
		x = BRed(x, x, q, u)
	}
	return BRedAdd(result, q, u)
}
