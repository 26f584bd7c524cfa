// Package rns implements the residue number system layer of the BFV scheme: CRT bases,
// fast and exact base conversion, and the BEHZ16 toolkit used for ciphertext
// multiplication, modulus switching and decryption without leaving the RNS representation.
package rns

import (
	"fmt"
	"math/big"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/rnsbfv/ring"
	"github.com/tuneinsight/rnsbfv/utils"
)

// Base is an ordered set of pairwise coprime moduli {q_1, ..., q_k} together with
// the CRT constants Q = prod q_i, q_i* = Q/q_i and ~q_i = (q_i* mod q_i)^-1 mod q_i.
// A Base is immutable: Extend and Drop return new instances.
type Base struct {
	moduli                  []ring.Modulus
	prod                    *big.Int
	puncturedProd           []*big.Int
	invPuncturedProdModBase []ring.MulOperand
}

// NewBase returns the [Base] of the given moduli.
// It returns an error if the list is empty, or if a modulus is zero, or if two moduli are not coprime.
func NewBase(moduli []ring.Modulus) (b *Base, err error) {

	if len(moduli) == 0 {
		return nil, fmt.Errorf("cannot NewBase: base is empty")
	}

	for i := range moduli {
		if moduli[i].IsZero() {
			return nil, fmt.Errorf("cannot NewBase: modulus at index %d is zero", i)
		}
		for j := 0; j < i; j++ {
			if utils.GCD(moduli[i].Value(), moduli[j].Value()) != 1 {
				return nil, fmt.Errorf("cannot NewBase: moduli %d and %d are not coprime", moduli[j].Value(), moduli[i].Value())
			}
		}
	}

	b = &Base{moduli: append([]ring.Modulus{}, moduli...)}
	b.initialize()
	return
}

// NewBaseFromValues returns the [Base] of the given modulus values.
func NewBaseFromValues(q []uint64) (b *Base, err error) {
	var moduli []ring.Modulus
	if moduli, err = ring.NewModuli(q); err != nil {
		return nil, fmt.Errorf("cannot NewBaseFromValues: %w", err)
	}
	return NewBase(moduli)
}

func (b *Base) initialize() {

	k := len(b.moduli)

	b.prod = big.NewInt(1)
	for i := range b.moduli {
		b.prod.Mul(b.prod, b.moduli[i].BigInt())
	}

	b.puncturedProd = make([]*big.Int, k)
	b.invPuncturedProdModBase = make([]ring.MulOperand, k)

	if k == 1 {
		b.puncturedProd[0] = big.NewInt(1)
		b.invPuncturedProdModBase[0] = ring.NewMulOperand(1, b.moduli[0])
		return
	}

	for i, qi := range b.moduli {

		b.puncturedProd[i] = new(big.Int).Quo(b.prod, qi.BigInt())

		inv, ok := qi.Inverse(qi.ReduceBig(b.puncturedProd[i]))
		if !ok {
			// Coprimality has been checked, this should not happen.
			panic(fmt.Errorf("invalid base: punctured product is not invertible modulo %d", qi.Value()))
		}

		b.invPuncturedProdModBase[i] = ring.NewMulOperand(inv, qi)
	}
}

// Size returns the number of moduli in the base.
func (b *Base) Size() int {
	return len(b.moduli)
}

// At returns the i-th modulus of the base.
func (b *Base) At(i int) ring.Modulus {
	return b.moduli[i]
}

// Moduli returns a copy of the moduli of the base.
func (b *Base) Moduli() []ring.Modulus {
	return utils.CopyNew(b.moduli)
}

// Values returns the values of the moduli of the base.
func (b *Base) Values() []uint64 {
	return ring.ModuliValues(b.moduli)
}

// Prod returns a copy of Q = prod q_i.
func (b *Base) Prod() *big.Int {
	return new(big.Int).Set(b.prod)
}

// PuncturedProd returns a copy of q_i* = Q/q_i.
func (b *Base) PuncturedProd(i int) *big.Int {
	return new(big.Int).Set(b.puncturedProd[i])
}

// InvPuncturedProdModBase returns (q_i* mod q_i)^-1 mod q_i.
func (b *Base) InvPuncturedProdModBase(i int) ring.MulOperand {
	return b.invPuncturedProdModBase[i]
}

// Contains returns true if m is one of the moduli of the base.
func (b *Base) Contains(m ring.Modulus) bool {
	for i := range b.moduli {
		if b.moduli[i].Value() == m.Value() {
			return true
		}
	}
	return false
}

// IsSubBaseOf returns true if every modulus of b is in other.
func (b *Base) IsSubBaseOf(other *Base) bool {
	for i := range b.moduli {
		if !other.Contains(b.moduli[i]) {
			return false
		}
	}
	return true
}

// IsSuperBaseOf returns true if every modulus of other is in b.
func (b *Base) IsSuperBaseOf(other *Base) bool {
	return other.IsSubBaseOf(b)
}

// IsProperSubBaseOf returns true if b is a sub-base of other and is strictly smaller.
func (b *Base) IsProperSubBaseOf(other *Base) bool {
	return b.Size() < other.Size() && b.IsSubBaseOf(other)
}

// IsProperSuperBaseOf returns true if b is a super-base of other and is strictly larger.
func (b *Base) IsProperSuperBaseOf(other *Base) bool {
	return other.IsProperSubBaseOf(b)
}

// Extend returns a new base with m appended.
// It returns an error if m is zero or not coprime with a modulus of the base.
func (b *Base) Extend(m ring.Modulus) (*Base, error) {
	return b.ExtendBase(&Base{moduli: []ring.Modulus{m}})
}

// ExtendBase returns a new base with the moduli of other appended.
// It returns an error if a modulus of other is zero or not coprime with a modulus of the base.
func (b *Base) ExtendBase(other *Base) (*Base, error) {

	for _, m := range other.moduli {

		if m.IsZero() {
			return nil, fmt.Errorf("cannot ExtendBase: modulus is zero")
		}

		for _, qi := range b.moduli {
			if utils.GCD(qi.Value(), m.Value()) != 1 {
				return nil, fmt.Errorf("cannot ExtendBase: modulus %d is not coprime with %d", m.Value(), qi.Value())
			}
		}
	}

	extended := &Base{moduli: append(b.Moduli(), other.moduli...)}
	extended.initialize()
	return extended, nil
}

// Drop returns a new base without its last modulus.
// It returns an error if the base has a single modulus.
func (b *Base) Drop() (*Base, error) {

	if b.Size() == 1 {
		return nil, fmt.Errorf("cannot Drop: base has a single modulus")
	}

	dropped := &Base{moduli: b.Moduli()[:b.Size()-1]}
	dropped.initialize()
	return dropped, nil
}

// DropModulus returns a new base without the modulus m.
// It returns an error if the base has a single modulus or does not contain m.
func (b *Base) DropModulus(m ring.Modulus) (*Base, error) {

	if b.Size() == 1 {
		return nil, fmt.Errorf("cannot DropModulus: base has a single modulus")
	}

	if !b.Contains(m) {
		return nil, fmt.Errorf("cannot DropModulus: base does not contain %d", m.Value())
	}

	moduli := make([]ring.Modulus, 0, b.Size()-1)
	for _, qi := range b.moduli {
		if qi.Value() != m.Value() {
			moduli = append(moduli, qi)
		}
	}

	dropped := &Base{moduli: moduli}
	dropped.initialize()
	return dropped, nil
}

// Decompose returns the residues x mod q_i.
func (b *Base) Decompose(x *big.Int) (residues []uint64) {
	residues = make([]uint64, len(b.moduli))
	for i, qi := range b.moduli {
		residues[i] = qi.ReduceBig(x)
	}
	return
}

// DecomposeArray writes the residues of values on out in the RNS layout:
// out[i*N+j] = values[j] mod q_i with N = len(values).
func (b *Base) DecomposeArray(values []*big.Int, out []uint64) {

	N := len(values)

	if len(out) != N*b.Size() {
		panic(fmt.Errorf("invalid DecomposeArray output: len(out)=%d but expected %d", len(out), N*b.Size()))
	}

	for i, qi := range b.moduli {
		Qi := qi.BigInt()
		tmp := new(big.Int)
		for j := range values {
			out[i*N+j] = tmp.Mod(values[j], Qi).Uint64()
		}
	}
}

// Compose returns the integer x in [0, Q) such that x = residues[i] mod q_i,
// computed as sum_i ([residues[i] * ~q_i]_{q_i} * q_i*) mod Q.
func (b *Base) Compose(residues []uint64) (x *big.Int) {

	if len(residues) != b.Size() {
		panic(fmt.Errorf("invalid Compose input: len(residues)=%d but base has size %d", len(residues), b.Size()))
	}

	if b.Size() == 1 {
		return new(big.Int).SetUint64(residues[0])
	}

	x = new(big.Int)
	tmp := new(big.Int)
	for i, qi := range b.moduli {
		tmp.SetUint64(qi.MulOp(residues[i], b.invPuncturedProdModBase[i]))
		tmp.Mul(tmp, b.puncturedProd[i])
		x.Add(x, tmp)
		if x.Cmp(b.prod) >= 0 {
			x.Sub(x, b.prod)
		}
	}

	return
}

// ComposeArray composes each of the N = len(in)/k coefficients of in, given in the RNS layout.
func (b *Base) ComposeArray(in []uint64) (values []*big.Int) {

	k := b.Size()

	if len(in)%k != 0 {
		panic(fmt.Errorf("invalid ComposeArray input: len(in)=%d is not a multiple of the base size %d", len(in), k))
	}

	N := len(in) / k

	values = make([]*big.Int, N)
	residues := make([]uint64, k)
	for j := range values {
		for i := range residues {
			residues[i] = in[i*N+j]
		}
		values[j] = b.Compose(residues)
	}

	return
}

// Equal returns true if both bases have the same moduli in the same order.
func (b *Base) Equal(other *Base) bool {
	if b == nil || other == nil {
		return b == other
	}
	return cmp.Equal(b.Values(), other.Values())
}

func (b *Base) String() string {
	return fmt.Sprintf("%v", b.Values())
}
