package rns

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/tuneinsight/rnsbfv/ring"
)

// dotProductBatch is the number of 122-bit products that can be accumulated
// in 128 bits before a reduction is required.
const dotProductBatch = 16

// BaseConverter converts residues from an input base {q_j} to an output base {p_i}
// without reconstructing the integer, using the change matrix q_j* mod p_i.
type BaseConverter struct {
	in, out      *Base
	changeMatrix [][]uint64
	prodModOut   []uint64 // Q mod p_i
}

// NewBaseConverter returns a [BaseConverter] from in to out.
func NewBaseConverter(in, out *Base) (c *BaseConverter, err error) {

	if in == nil || in.Size() == 0 {
		return nil, fmt.Errorf("cannot NewBaseConverter: input base is empty")
	}

	if out == nil || out.Size() == 0 {
		return nil, fmt.Errorf("cannot NewBaseConverter: output base is empty")
	}

	c = &BaseConverter{
		in:           in,
		out:          out,
		changeMatrix: make([][]uint64, out.Size()),
		prodModOut:   make([]uint64, out.Size()),
	}

	for i, pi := range out.moduli {
		c.prodModOut[i] = pi.ReduceBig(in.prod)
		c.changeMatrix[i] = make([]uint64, in.Size())
		for j := range in.moduli {
			c.changeMatrix[i][j] = pi.ReduceBig(in.puncturedProd[j])
		}
	}

	return
}

// InBase returns the input base.
func (c *BaseConverter) InBase() *Base {
	return c.in
}

// OutBase returns the output base.
func (c *BaseConverter) OutBase() *Base {
	return c.out
}

// FastConvert writes on out the fast base conversion of the residues in:
// out[i] = sum_j [in[j] * ~q_j]_{q_j} * (q_j* mod p_i) mod p_i.
// The result is x + a*Q mod p_i for some 0 <= a < k, where x is the value represented by in.
func (c *BaseConverter) FastConvert(in, out []uint64) {

	if len(in) != c.in.Size() || len(out) != c.out.Size() {
		panic(fmt.Errorf("invalid FastConvert input: len(in)=%d, len(out)=%d but bases have size %d and %d", len(in), len(out), c.in.Size(), c.out.Size()))
	}

	tmp := make([]uint64, len(in))
	for j, qj := range c.in.moduli {
		tmp[j] = qj.MulOp(in[j], c.in.invPuncturedProdModBase[j])
	}

	for i, pi := range c.out.moduli {
		out[i] = dotProductMod(tmp, c.changeMatrix[i], pi)
	}
}

// FastConvertArray applies FastConvert to each coefficient of in, given in the RNS layout
// (k blocks of N coefficients), writing k' blocks of N coefficients on out.
func (c *BaseConverter) FastConvertArray(in, out []uint64) {

	N := c.checkArrays(in, out)

	tmp := c.scaleByInvPuncturedProd(in, N)

	for i, pi := range c.out.moduli {
		row := c.changeMatrix[i]
		block := out[i*N : (i+1)*N]
		for j := range block {
			block[j] = dotProductMod(tmp[j], row, pi)
		}
	}
}

// ExactConvert returns the exact conversion of the residues in to the single modulus p of the output base,
// that is the value represented by in, centered in [-Q/2, Q/2), reduced modulo p.
//
// It computes v = sum_j [in[j] * ~q_j]_{q_j} / q_j in floating point, rounds it to the nearest integer
// (a fractional part of exactly one half is rounded down) and subtracts round(v) * (Q mod p)
// from the fast conversion.
func (c *BaseConverter) ExactConvert(in []uint64) uint64 {

	if c.out.Size() != 1 {
		panic(fmt.Errorf("invalid ExactConvert: output base must have a single modulus but has %d", c.out.Size()))
	}

	if len(in) != c.in.Size() {
		panic(fmt.Errorf("invalid ExactConvert input: len(in)=%d but base has size %d", len(in), c.in.Size()))
	}

	tmp := make([]uint64, len(in))
	var v float64
	for j, qj := range c.in.moduli {
		tmp[j] = qj.MulOp(in[j], c.in.invPuncturedProdModBase[j])
		v += float64(tmp[j]) / float64(qj.Value())
	}

	p, qModP := c.out.moduli[0], c.prodModOut[0]

	return p.Sub(dotProductMod(tmp, c.changeMatrix[0], p), p.Mul(roundHalfDown(v), qModP))
}

// ExactConvertArray applies ExactConvert to each coefficient of in, given in the RNS layout.
func (c *BaseConverter) ExactConvertArray(in, out []uint64) {

	if c.out.Size() != 1 {
		panic(fmt.Errorf("invalid ExactConvertArray: output base must have a single modulus but has %d", c.out.Size()))
	}

	N := c.checkArrays(in, out)

	tmp := c.scaleByInvPuncturedProd(in, N)

	qf := make([]float64, c.in.Size())
	for j, qj := range c.in.moduli {
		qf[j] = float64(qj.Value())
	}

	p, qModP := c.out.moduli[0], c.prodModOut[0]
	row := c.changeMatrix[0]

	for j := range out {

		var v float64
		for i, t := range tmp[j] {
			v += float64(t) / qf[i]
		}

		out[j] = p.Sub(dotProductMod(tmp[j], row, p), p.Mul(roundHalfDown(v), qModP))
	}
}

// scaleByInvPuncturedProd returns, for each coefficient, the vector [in_j * ~q_j]_{q_j} (coefficient-major).
func (c *BaseConverter) scaleByInvPuncturedProd(in []uint64, N int) (tmp [][]uint64) {

	k := c.in.Size()

	flat := make([]uint64, N*k)
	tmp = make([][]uint64, N)
	for j := range tmp {
		tmp[j] = flat[j*k : (j+1)*k]
	}

	for i, qi := range c.in.moduli {
		op := c.in.invPuncturedProdModBase[i]
		block := in[i*N : (i+1)*N]
		if op.Operand == 1 {
			for j := range block {
				tmp[j][i] = qi.Reduce(block[j])
			}
		} else {
			for j := range block {
				tmp[j][i] = qi.MulOp(block[j], op)
			}
		}
	}

	return
}

func (c *BaseConverter) checkArrays(in, out []uint64) (N int) {

	k, kOut := c.in.Size(), c.out.Size()

	if len(in)%k != 0 || len(out) != len(in)/k*kOut {
		panic(fmt.Errorf("invalid base conversion arrays: len(in)=%d, len(out)=%d for bases of size %d and %d", len(in), len(out), k, kOut))
	}

	return len(in) / k
}

// dotProductMod returns sum_i a[i] * b[i] mod m, accumulating the products in 128 bits.
func dotProductMod(a, b []uint64, m ring.Modulus) (r uint64) {

	var hi, lo, phi, plo, carry uint64

	for i := range a {

		phi, plo = bits.Mul64(a[i], b[i])
		lo, carry = bits.Add64(lo, plo, 0)
		hi += phi + carry

		if (i+1)%dotProductBatch == 0 {
			lo, hi = m.ReduceWide(hi, lo), 0
		}
	}

	return m.ReduceWide(hi, lo)
}

// roundHalfDown rounds v to the nearest integer, a fractional part of exactly 0.5 being rounded down.
func roundHalfDown(v float64) uint64 {
	r := math.Floor(v)
	if v-r > 0.5 {
		r++
	}
	return uint64(r)
}
