package ring

import (
	"fmt"

	"github.com/tuneinsight/rnsbfv/utils"
)

// NTTTable stores the precomputed roots of unity of the negacyclic
// number theoretic transform in Z_q[X]/(X^N+1), and implements the
// transform with Harvey's lazy butterflies.
type NTTTable struct {
	modulus       Modulus
	n             int
	logN          int
	root          uint64
	rootPowers    []MulOperand // psi^bitrev(i)
	invRootPowers []MulOperand // psi^-bitrev(i)
	nInv          MulOperand
}

// NewNTTTable returns the [NTTTable] of the negacyclic NTT of size N=2^logN modulo m.
// It returns an error if m is not a prime congruent to 1 mod 2N.
func NewNTTTable(logN int, m Modulus) (table *NTTTable, err error) {

	if logN < 1 || logN > 30 {
		return nil, fmt.Errorf("cannot NewNTTTable: logN=%d is out of range", logN)
	}

	if m.IsZero() {
		return nil, fmt.Errorf("cannot NewNTTTable: modulus is zero")
	}

	N := 1 << logN

	var root uint64
	if root, err = PrimitiveRoot(m.value, N<<1); err != nil {
		return nil, fmt.Errorf("cannot NewNTTTable: %w", err)
	}

	table = &NTTTable{
		modulus:       m,
		n:             N,
		logN:          logN,
		root:          root,
		rootPowers:    make([]MulOperand, N),
		invRootPowers: make([]MulOperand, N),
	}

	invRoot, _ := m.Inverse(root)

	power, invPower := uint64(1), uint64(1)
	for i := 0; i < N; i++ {
		j := utils.BitReverse64(i, logN)
		table.rootPowers[j] = NewMulOperand(power, m)
		table.invRootPowers[j] = NewMulOperand(invPower, m)
		power = m.Mul(power, root)
		invPower = m.Mul(invPower, invRoot)
	}

	nInv, _ := m.Inverse(uint64(N))
	table.nInv = NewMulOperand(nInv, m)

	return
}

// NewNTTTables returns the [NTTTable] of each modulus.
func NewNTTTables(logN int, moduli []Modulus) (tables []*NTTTable, err error) {
	tables = make([]*NTTTable, len(moduli))
	for i := range moduli {
		if tables[i], err = NewNTTTable(logN, moduli[i]); err != nil {
			return nil, fmt.Errorf("cannot NewNTTTables: modulus %d: %w", moduli[i].value, err)
		}
	}
	return
}

// Modulus returns the modulus of the table.
func (t *NTTTable) Modulus() Modulus {
	return t.modulus
}

// N returns the size of the transform.
func (t *NTTTable) N() int {
	return t.n
}

// LogN returns log2 of the size of the transform.
func (t *NTTTable) LogN() int {
	return t.logN
}

// Root returns the primitive 2N-th root of unity used by the transform.
func (t *NTTTable) Root() uint64 {
	return t.root
}

// Forward writes the forward NTT of p1 on p2.
// Inputs must be in [0, 4q-1], outputs are in [0, q-1].
func (t *NTTTable) Forward(p1, p2 []uint64) {
	t.ForwardLazy(p1, p2)
	q, twoQ := t.modulus.value, t.modulus.value<<1
	for i := range p2[:t.n] {
		if p2[i] >= twoQ {
			p2[i] -= twoQ
		}
		p2[i] = CRed(p2[i], q)
	}
}

// ForwardLazy writes the forward NTT of p1 on p2.
// Inputs must be in [0, 4q-1], outputs are in [0, 4q-1].
func (t *NTTTable) ForwardLazy(p1, p2 []uint64) {

	t.checkLength(p1, p2)

	if &p1[0] != &p2[0] {
		copy(p2[:t.n], p1[:t.n])
	}

	q := t.modulus.value
	twoQ := q << 1
	N := t.n

	gap := N >> 1
	for m := 1; m < N; m <<= 1 {
		for i := 0; i < m; i++ {
			w := t.rootPowers[m+i]
			j1 := 2 * i * gap
			x := p2[j1 : j1+gap]
			y := p2[j1+gap : j1+2*gap]
			for j := range x {
				u := x[j]
				if u >= twoQ {
					u -= twoQ
				}
				v := MulOpLazy(y[j], w, q)
				x[j] = u + v
				y[j] = u + twoQ - v
			}
		}
		gap >>= 1
	}
}

// Backward writes the backward NTT of p1 on p2.
// Inputs must be in [0, 2q-1], outputs are in [0, q-1].
func (t *NTTTable) Backward(p1, p2 []uint64) {
	t.BackwardLazy(p1, p2)
	q := t.modulus.value
	for i := range p2[:t.n] {
		p2[i] = CRed(p2[i], q)
	}
}

// BackwardLazy writes the backward NTT of p1 on p2.
// Inputs must be in [0, 2q-1], outputs are in [0, 2q-1].
func (t *NTTTable) BackwardLazy(p1, p2 []uint64) {

	t.checkLength(p1, p2)

	if &p1[0] != &p2[0] {
		copy(p2[:t.n], p1[:t.n])
	}

	q := t.modulus.value
	twoQ := q << 1
	N := t.n

	gap := 1
	for m := N; m > 1; m >>= 1 {
		h := m >> 1
		j1 := 0
		for i := 0; i < h; i++ {
			w := t.invRootPowers[h+i]
			x := p2[j1 : j1+gap]
			y := p2[j1+gap : j1+2*gap]
			for j := range x {
				u, v := x[j], y[j]
				s := u + v
				if s >= twoQ {
					s -= twoQ
				}
				x[j] = s
				y[j] = MulOpLazy(u+twoQ-v, w, q)
			}
			j1 += gap << 1
		}
		gap <<= 1
	}

	for i := range p2[:N] {
		p2[i] = MulOpLazy(p2[i], t.nInv, q)
	}
}

func (t *NTTTable) checkLength(p1, p2 []uint64) {
	if len(p1) < t.n || len(p2) < t.n {
		panic(fmt.Errorf("invalid NTT input: len(p1)=%d, len(p2)=%d but N=%d", len(p1), len(p2), t.n))
	}
}
