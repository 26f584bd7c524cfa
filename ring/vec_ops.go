package ring

// AddVec evaluates p3 = p1 + p2 mod m.
func AddVec(p1, p2, p3 []uint64, m Modulus) {
	q := m.value
	for i := range p3 {
		p3[i] = CRed(p1[i]+p2[i], q)
	}
}

// SubVec evaluates p3 = p1 - p2 mod m.
func SubVec(p1, p2, p3 []uint64, m Modulus) {
	q := m.value
	for i := range p3 {
		p3[i] = CRed(p1[i]+q-p2[i], q)
	}
}

// NegVec evaluates p2 = -p1 mod m.
func NegVec(p1, p2 []uint64, m Modulus) {
	for i := range p2 {
		p2[i] = m.Neg(p1[i])
	}
}

// ReduceVec evaluates p2 = p1 mod m for p1 with arbitrary 64-bit coefficients.
func ReduceVec(p1, p2 []uint64, m Modulus) {
	q, u := m.value, m.bredConstant
	for i := range p2 {
		p2[i] = BRedAdd(p1[i], q, u)
	}
}

// AddScalarVec evaluates p2 = p1 + scalar mod m, with scalar in [0, q-1].
func AddScalarVec(p1 []uint64, scalar uint64, p2 []uint64, m Modulus) {
	q := m.value
	for i := range p2 {
		p2[i] = CRed(p1[i]+scalar, q)
	}
}

// SubScalarVec evaluates p2 = p1 - scalar mod m, with scalar in [0, q-1].
func SubScalarVec(p1 []uint64, scalar uint64, p2 []uint64, m Modulus) {
	q := m.value
	for i := range p2 {
		p2[i] = CRed(p1[i]+q-scalar, q)
	}
}

// MulScalarVec evaluates p2 = p1 * scalar mod m.
func MulScalarVec(p1 []uint64, scalar uint64, p2 []uint64, m Modulus) {
	MulOperandVec(p1, NewMulOperand(scalar, m), p2, m)
}

// MulOperandVec evaluates p2 = p1 * op.Operand mod m for p1 with arbitrary 64-bit coefficients.
func MulOperandVec(p1 []uint64, op MulOperand, p2 []uint64, m Modulus) {
	q := m.value
	for i := range p2 {
		p2[i] = MulOp(p1[i], op, q)
	}
}

// MulCoeffsVec evaluates the dyadic product p3 = p1 * p2 mod m.
func MulCoeffsVec(p1, p2, p3 []uint64, m Modulus) {
	q, u := m.value, m.bredConstant
	for i := range p3 {
		p3[i] = BRed(p1[i], p2[i], q, u)
	}
}

// MulByMonomialVec evaluates p2 = p1 * X^k mod (X^N+1, m), where N = len(p1).
// p1 and p2 must not overlap unless k = 0 mod 2N.
func MulByMonomialVec(p1 []uint64, k int, p2 []uint64, m Modulus) {

	N := len(p1)

	k %= N << 1
	if k < 0 {
		k += N << 1
	}

	if k == 0 {
		copy(p2, p1)
		return
	}

	for i := range p1 {
		j := i + k
		neg := false
		for j >= N {
			j -= N
			neg = !neg
		}
		if neg {
			p2[j] = m.Neg(p1[i])
		} else {
			p2[j] = p1[i]
		}
	}
}
