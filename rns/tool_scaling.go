package rns

import (
	"fmt"

	"github.com/tuneinsight/rnsbfv/ring"
)

// DivideAndRoundQLastInplace computes round(x/q_last) in the base Q minus its last modulus,
// for a polynomial x in the base Q given in the coefficient domain.
// poly has length |Q|*N. The first |Q|-1 blocks are overwritten with the result and the
// last block is left in an unspecified state.
// The method panics if the base Q has a single modulus.
func (tool *Tool) DivideAndRoundQLastInplace(poly []uint64) {

	N := tool.n
	sizeQ := tool.baseQ.Size()

	tool.checkLength("poly", poly, sizeQ)

	if sizeQ < 2 {
		panic(fmt.Errorf("cannot DivideAndRoundQLastInplace: base Q must have at least two moduli"))
	}

	qLast := tool.baseQ.At(sizeQ - 1)
	last := poly[(sizeQ-1)*N:]

	// round(x/q_last) = floor((x + q_last/2) / q_last)
	half := qLast.Value() >> 1
	ring.AddScalarVec(last, half, last, qLast)

	temp := make([]uint64, N)

	for i, qi := range tool.baseQ.moduli[:sizeQ-1] {

		ring.ReduceVec(last, temp, qi)
		ring.SubScalarVec(temp, qi.Reduce(half), temp, qi)

		polyI := poly[i*N : (i+1)*N]

		// (x_i - (x_last - half)) * q_last^-1 mod q_i
		ring.SubVec(polyI, temp, polyI, qi)
		ring.MulOperandVec(polyI, tool.invQLastModQ[i], polyI, qi)
	}
}

// DivideAndRoundQLastNTTInplace is identical to DivideAndRoundQLastInplace but takes and
// returns a polynomial in the NTT domain. tables must hold the NTT tables of the moduli of Q,
// in the same order, for the ring degree of the tool.
func (tool *Tool) DivideAndRoundQLastNTTInplace(poly []uint64, tables []*ring.NTTTable) {

	N := tool.n
	sizeQ := tool.baseQ.Size()

	tool.checkLength("poly", poly, sizeQ)

	if sizeQ < 2 {
		panic(fmt.Errorf("cannot DivideAndRoundQLastNTTInplace: base Q must have at least two moduli"))
	}

	if len(tables) < sizeQ {
		panic(fmt.Errorf("cannot DivideAndRoundQLastNTTInplace: got %d NTT tables but base Q has %d moduli", len(tables), sizeQ))
	}

	for i, qi := range tool.baseQ.moduli {
		if tables[i].N() != N || !tables[i].Modulus().Equal(qi) {
			panic(fmt.Errorf("cannot DivideAndRoundQLastNTTInplace: NTT table %d does not match modulus %d and N=%d", i, qi.Value(), N))
		}
	}

	qLast := tool.baseQ.At(sizeQ - 1)
	last := poly[(sizeQ-1)*N:]

	tables[sizeQ-1].Backward(last, last)

	half := qLast.Value() >> 1
	ring.AddScalarVec(last, half, last, qLast)

	temp := make([]uint64, N)

	for i, qi := range tool.baseQ.moduli[:sizeQ-1] {

		qiValue := qi.Value()

		if qiValue < qLast.Value() {
			ring.ReduceVec(last, temp, qi)
		} else {
			copy(temp, last)
		}

		// temp = x_last - half mod q_i, in [0, 2q_i)
		negHalf := qiValue - qi.Reduce(half)
		for j := 0; j < N; j++ {
			temp[j] += negHalf
		}

		// Output in [0, 4q_i)
		tables[i].ForwardLazy(temp, temp)

		polyI := poly[i*N : (i+1)*N]

		qiLazy := qiValue << 2
		for j := 0; j < N; j++ {
			polyI[j] += qiLazy - temp[j]
		}

		ring.MulOperandVec(polyI, tool.invQLastModQ[i], polyI, qi)
	}
}

// DecryptScaleAndRound computes round(t * x / Q) mod t for a polynomial x in the base Q,
// using the auxiliary prime gamma to correct the rounding of the fast base conversion.
// in has length |Q|*N and out has length N.
// The method panics if the plaintext modulus of the tool is zero.
func (tool *Tool) DecryptScaleAndRound(in, out []uint64) {

	if tool.baseTGamma == nil {
		panic(fmt.Errorf("cannot DecryptScaleAndRound: plaintext modulus is not set"))
	}

	N := tool.n
	sizeQ := tool.baseQ.Size()

	tool.checkLength("input", in, sizeQ)
	tool.checkLength("output", out, 1)

	// x * t * gamma mod q_i
	temp := make([]uint64, sizeQ*N)
	for i, qi := range tool.baseQ.moduli {
		ring.MulOperandVec(in[i*N:(i+1)*N], tool.prodTGammaModQ[i], temp[i*N:(i+1)*N], qi)
	}

	// Fast conversion to {t, gamma} followed by a multiplication by -Q^-1
	tempTGamma := make([]uint64, 2*N)
	tool.baseQToTGammaConv.FastConvertArray(temp, tempTGamma)

	for i, m := range tool.baseTGamma.moduli {
		ring.MulOperandVec(tempTGamma[i*N:(i+1)*N], tool.negInvQModTGamma[i], tempTGamma[i*N:(i+1)*N], m)
	}

	t, gamma := tool.t, tool.gamma
	gammaValue := gamma.Value()
	half := gammaValue >> 1

	for j := 0; j < N; j++ {

		resT := tempTGamma[j]
		resGamma := tempTGamma[N+j]

		// Subtracts the centered residue modulo gamma from the residue modulo t.
		if resGamma > half {
			resT = t.Add(resT, t.Reduce(gammaValue-resGamma))
		} else {
			resT = t.Sub(resT, t.Reduce(resGamma))
		}

		if resT != 0 {
			out[j] = t.MulOp(resT, tool.invGammaModT)
		} else {
			out[j] = 0
		}
	}
}

// DecryptModT computes the centered representative of x mod Q reduced modulo t,
// for a polynomial x in the base Q, using the exact base conversion.
// in has length |Q|*N and out has length N.
// The method panics if the plaintext modulus of the tool is zero.
func (tool *Tool) DecryptModT(in, out []uint64) {

	if tool.baseQToTConv == nil {
		panic(fmt.Errorf("cannot DecryptModT: plaintext modulus is not set"))
	}

	tool.checkLength("input", in, tool.baseQ.Size())
	tool.checkLength("output", out, 1)

	tool.baseQToTConv.ExactConvertArray(in, out)
}
