package rns

import (
	"github.com/tuneinsight/rnsbfv/ring"
)

// FastBConvMTilde multiplies the polynomial in, in base Q, by m~ and fast-converts
// the result to the base Bsk U {m~}.
// in has length |Q|*N and out has length (|Bsk|+1)*N. The residues modulo m~ are written
// in the last block of out.
func (tool *Tool) FastBConvMTilde(in, out []uint64) {

	N := tool.n
	sizeQ, sizeBsk := tool.baseQ.Size(), tool.baseBsk.Size()

	tool.checkLength("input", in, sizeQ)
	tool.checkLength("output", out, sizeBsk+1)

	temp := make([]uint64, sizeQ*N)
	for i, qi := range tool.baseQ.moduli {
		ring.MulOperandVec(in[i*N:(i+1)*N], tool.mTildeModQ[i], temp[i*N:(i+1)*N], qi)
	}

	tool.baseQToBskConv.FastConvertArray(temp, out[:sizeBsk*N])
	tool.baseQToMTildeConv.FastConvertArray(temp, out[sizeBsk*N:])
}

// SmMRq removes the overflow multiple of Q introduced by FastBConvMTilde with a small
// Montgomery reduction by m~.
// in has length (|Bsk|+1)*N with the residues modulo m~ in the last block, and out has length |Bsk|*N.
// If x in [0, Q) is the polynomial given to FastBConvMTilde, the output is either x or x-Q in the base Bsk.
func (tool *Tool) SmMRq(in, out []uint64) {

	N := tool.n
	sizeBsk := tool.baseBsk.Size()

	tool.checkLength("input", in, sizeBsk+1)
	tool.checkLength("output", out, sizeBsk)

	mTilde := tool.mTilde

	// r_m~ = -in * Q^-1 mod m~
	rMTilde := make([]uint64, N)
	ring.MulOperandVec(in[sizeBsk*N:], tool.negInvProdQModMTilde, rMTilde, mTilde)

	half := mTilde.Value() >> 1

	for i, m := range tool.baseBsk.moduli {

		prodQ := ring.NewMulOperand(tool.prodQModBsk[i], m)
		invMTilde := tool.invMTildeModBsk[i]

		inI := in[i*N : (i+1)*N]
		outI := out[i*N : (i+1)*N]

		for j := 0; j < N; j++ {

			// Centers r_m~ in [-m~/2, m~/2).
			r := rMTilde[j]
			if r >= half {
				r += m.Value() - mTilde.Value()
			}

			// (in + Q*r_m~) * m~^-1 mod m
			outI[j] = m.MulOp(m.MulAddOp(r, prodQ, inI[j]), invMTilde)
		}
	}
}

// FastFloor computes floor(x/Q) in the base Bsk, up to an additive error of at most |Q|-1,
// for a polynomial x given in the base Q U Bsk.
// in has length (|Q|+|Bsk|)*N, with the residues in Q first, and out has length |Bsk|*N.
func (tool *Tool) FastFloor(in, out []uint64) {

	N := tool.n
	sizeQ, sizeBsk := tool.baseQ.Size(), tool.baseBsk.Size()

	tool.checkLength("input", in, sizeQ+sizeBsk)
	tool.checkLength("output", out, sizeBsk)

	// x mod Q converted to Bsk
	tool.baseQToBskConv.FastConvertArray(in[:sizeQ*N], out)

	inBsk := in[sizeQ*N:]

	// (x - (x mod Q)) * Q^-1 mod m
	for i, m := range tool.baseBsk.moduli {

		invProdQ := tool.invProdQModBsk[i]
		mValue := m.Value()

		inI := inBsk[i*N : (i+1)*N]
		outI := out[i*N : (i+1)*N]

		for j := 0; j < N; j++ {
			outI[j] = m.MulOp(inI[j]+(mValue-outI[j]), invProdQ)
		}
	}
}

// FastBConvSk converts a polynomial from the base Bsk to the base Q, using the residues
// modulo m_sk to cancel the overflow multiple of B (Shenoy-Kumaresan correction).
// The conversion is exact for inputs whose centered value lies in (-B*m_sk/2, B*m_sk/2).
// in has length |Bsk|*N and out has length |Q|*N.
func (tool *Tool) FastBConvSk(in, out []uint64) {

	N := tool.n
	sizeQ, sizeB := tool.baseQ.Size(), tool.baseB.Size()

	tool.checkLength("input", in, sizeB+1)
	tool.checkLength("output", out, sizeQ)

	inB := in[:sizeB*N]
	inSk := in[sizeB*N:]

	// x mod B converted to Q and to m_sk
	tool.baseBToQConv.FastConvertArray(inB, out)

	temp := make([]uint64, N)
	tool.baseBToMSkConv.FastConvertArray(inB, temp)

	mSk := tool.mSk
	mSkValue := mSk.Value()

	// alpha_sk = (conv - x_sk) * B^-1 mod m_sk
	alphaSk := make([]uint64, N)
	for j := 0; j < N; j++ {
		alphaSk[j] = mSk.MulOp(temp[j]+(mSkValue-inSk[j]), tool.invProdBModMSk)
	}

	half := mSkValue >> 1

	for i, qi := range tool.baseQ.moduli {

		prodB := ring.NewMulOperand(tool.prodBModQ[i], qi)
		negProdB := ring.NewMulOperand(qi.Neg(tool.prodBModQ[i]), qi)

		outI := out[i*N : (i+1)*N]

		for j := 0; j < N; j++ {
			// Subtracts B * [alpha_sk] with alpha_sk centered around zero.
			if alphaSk[j] > half {
				outI[j] = qi.MulAddOp(mSkValue-alphaSk[j], prodB, outI[j])
			} else {
				outI[j] = qi.MulAddOp(alphaSk[j], negProdB, outI[j])
			}
		}
	}
}
