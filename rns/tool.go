package rns

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/rnsbfv/ring"
	"github.com/tuneinsight/rnsbfv/utils"
)

const (
	// MinBaseSize is the minimum number of moduli of the base Q of a [Tool].
	MinBaseSize = 1

	// MaxBaseSize is the maximum number of moduli of the base Q of a [Tool].
	MaxBaseSize = 64

	// MinPolyModulusDegree is the smallest ring degree supported by a [Tool].
	MinPolyModulusDegree = 2

	// MaxPolyModulusDegree is the largest ring degree supported by a [Tool].
	MaxPolyModulusDegree = 131072

	// AuxModulusBitCount is the bit-length of the auxiliary primes m_sk, gamma and of the primes of B.
	AuxModulusBitCount = 61

	// DefaultCrossTermSlackBits is the number of bits reserved for the growth
	// of the cross terms K*N of a tensor product when sizing the auxiliary base B.
	DefaultCrossTermSlackBits = 32

	// MTilde is the Montgomery factor of the small Montgomery reduction.
	MTilde = uint64(1) << 32
)

// Tool holds the auxiliary bases, base converters and precomputed constants of the
// BEHZ16 RNS variant of BFV, for a ring degree N, a base Q and a plaintext modulus t.
// A Tool is immutable and safe for concurrent use.
type Tool struct {
	n    int
	logN int
	t    ring.Modulus

	mSk, gamma, mTilde ring.Modulus

	baseQ, baseB, baseBsk, baseBskMTilde, baseTGamma *Base

	baseBskNTTTables []*ring.NTTTable

	baseQToBskConv    *BaseConverter
	baseQToMTildeConv *BaseConverter
	baseBToQConv      *BaseConverter
	baseBToMSkConv    *BaseConverter
	baseQToTGammaConv *BaseConverter
	baseQToTConv      *BaseConverter

	mTildeModQ           []ring.MulOperand
	prodBModQ            []uint64
	invProdQModBsk       []ring.MulOperand
	invProdBModMSk       ring.MulOperand
	invMTildeModBsk      []ring.MulOperand
	negInvProdQModMTilde ring.MulOperand
	prodQModBsk          []uint64
	invGammaModT         ring.MulOperand
	prodTGammaModQ       []ring.MulOperand
	negInvQModTGamma     []ring.MulOperand
	invQLastModQ         []ring.MulOperand
}

// NewTool returns a new [Tool] for the ring degree N, the base Q and the plaintext modulus t,
// reserving [DefaultCrossTermSlackBits] bits for the cross terms.
// The plaintext modulus may be the zero sentinel, in which case the decryption stages are not available.
func NewTool(N int, baseQ *Base, t ring.Modulus) (*Tool, error) {
	return NewToolWithSlack(N, baseQ, t, DefaultCrossTermSlackBits)
}

// NewToolWithSlack is identical to NewTool, with a custom number of bits reserved for the cross terms.
func NewToolWithSlack(N int, baseQ *Base, t ring.Modulus, slackBits int) (tool *Tool, err error) {

	if baseQ == nil || baseQ.Size() < MinBaseSize || baseQ.Size() > MaxBaseSize {
		return nil, fmt.Errorf("cannot NewTool: base Q must have between %d and %d moduli", MinBaseSize, MaxBaseSize)
	}

	if !utils.IsPowerOfTwo(N) || N < MinPolyModulusDegree || N > MaxPolyModulusDegree {
		return nil, fmt.Errorf("cannot NewTool: N=%d must be a power of two between %d and %d", N, MinPolyModulusDegree, MaxPolyModulusDegree)
	}

	if slackBits < 0 {
		return nil, fmt.Errorf("cannot NewTool: slackBits=%d must be non-negative", slackBits)
	}

	tool = &Tool{
		n:     N,
		logN:  bits.Len64(uint64(N)) - 1,
		t:     t,
		baseQ: baseQ,
	}

	// K*N*t*Q^2 < Q*B*m_sk must hold for the tensor product; B gets an extra
	// prime when slack + log(t) + log(Q) exceeds the capacity of |Q|+1 auxiliary primes.
	sizeQ := baseQ.Size()
	sizeB := sizeQ
	if slackBits+t.BitCount()+baseQ.prod.BitLen() >= AuxModulusBitCount*(sizeQ+1) {
		sizeB++
	}

	sizeBsk := sizeB + 1
	sizeBskMTilde := sizeBsk + 1

	if hi, _ := bits.Mul64(uint64(N), uint64(sizeBskMTilde)); hi != 0 {
		return nil, fmt.Errorf("cannot NewTool: invalid parameters: N*|Bsk|+1 overflows")
	}

	var primes []uint64
	if primes, err = ring.GenerateNTTPrimes(AuxModulusBitCount, N<<1, sizeB+2); err != nil {
		return nil, fmt.Errorf("cannot NewTool: %w", err)
	}

	var aux []ring.Modulus
	if aux, err = ring.NewModuli(primes); err != nil {
		return nil, fmt.Errorf("cannot NewTool: %w", err)
	}

	tool.mSk = aux[0]
	tool.gamma = aux[1]

	if tool.mTilde, err = ring.NewModulus(MTilde); err != nil {
		return nil, fmt.Errorf("cannot NewTool: %w", err)
	}

	if err = tool.initBases(aux[2:]); err != nil {
		return nil, fmt.Errorf("cannot NewTool: invalid rns bases: %w", err)
	}

	if err = tool.initConverters(); err != nil {
		return nil, fmt.Errorf("cannot NewTool: invalid rns bases: %w", err)
	}

	if err = tool.initConstants(); err != nil {
		return nil, fmt.Errorf("cannot NewTool: invalid rns bases: %w", err)
	}

	return
}

func (tool *Tool) initBases(baseBPrimes []ring.Modulus) (err error) {

	if tool.baseB, err = NewBase(baseBPrimes); err != nil {
		return
	}

	if tool.baseBsk, err = tool.baseB.Extend(tool.mSk); err != nil {
		return
	}

	if tool.baseBskMTilde, err = tool.baseBsk.Extend(tool.mTilde); err != nil {
		return
	}

	if !tool.t.IsZero() {
		if tool.baseTGamma, err = NewBase([]ring.Modulus{tool.t, tool.gamma}); err != nil {
			return
		}
	}

	// Used by the evaluator to multiply in the NTT domain after the extension to Bsk.
	if tool.baseBskNTTTables, err = ring.NewNTTTables(tool.logN, tool.baseBsk.moduli); err != nil {
		return
	}

	return
}

func (tool *Tool) initConverters() (err error) {

	var baseMTilde, baseMSk *Base

	if baseMTilde, err = NewBase([]ring.Modulus{tool.mTilde}); err != nil {
		return
	}

	if baseMSk, err = NewBase([]ring.Modulus{tool.mSk}); err != nil {
		return
	}

	if tool.baseQToBskConv, err = NewBaseConverter(tool.baseQ, tool.baseBsk); err != nil {
		return
	}

	if tool.baseQToMTildeConv, err = NewBaseConverter(tool.baseQ, baseMTilde); err != nil {
		return
	}

	if tool.baseBToQConv, err = NewBaseConverter(tool.baseB, tool.baseQ); err != nil {
		return
	}

	if tool.baseBToMSkConv, err = NewBaseConverter(tool.baseB, baseMSk); err != nil {
		return
	}

	if tool.baseTGamma != nil {

		if tool.baseQToTGammaConv, err = NewBaseConverter(tool.baseQ, tool.baseTGamma); err != nil {
			return
		}

		var baseT *Base
		if baseT, err = NewBase([]ring.Modulus{tool.t}); err != nil {
			return
		}

		if tool.baseQToTConv, err = NewBaseConverter(tool.baseQ, baseT); err != nil {
			return
		}
	}

	return
}

func (tool *Tool) initConstants() (err error) {

	baseQ, baseBsk := tool.baseQ, tool.baseBsk
	sizeQ, sizeBsk := baseQ.Size(), baseBsk.Size()

	invert := func(x uint64, m ring.Modulus) (ring.MulOperand, error) {
		inv, ok := m.Inverse(x)
		if !ok {
			return ring.MulOperand{}, fmt.Errorf("%d is not invertible modulo %d", x, m.Value())
		}
		return ring.NewMulOperand(inv, m), nil
	}

	// m~ mod q_i and prod(B) mod q_i
	tool.mTildeModQ = make([]ring.MulOperand, sizeQ)
	tool.prodBModQ = make([]uint64, sizeQ)
	for i, qi := range baseQ.moduli {
		tool.mTildeModQ[i] = ring.NewMulOperand(tool.mTilde.Value(), qi)
		tool.prodBModQ[i] = qi.ReduceBig(tool.baseB.prod)
	}

	// prod(q)^-1 mod Bsk, prod(q) mod Bsk and m~^-1 mod Bsk
	tool.invProdQModBsk = make([]ring.MulOperand, sizeBsk)
	tool.prodQModBsk = make([]uint64, sizeBsk)
	tool.invMTildeModBsk = make([]ring.MulOperand, sizeBsk)
	for i, m := range baseBsk.moduli {

		tool.prodQModBsk[i] = m.ReduceBig(baseQ.prod)

		if tool.invProdQModBsk[i], err = invert(tool.prodQModBsk[i], m); err != nil {
			return
		}

		if tool.invMTildeModBsk[i], err = invert(tool.mTilde.Value(), m); err != nil {
			return
		}
	}

	// prod(B)^-1 mod m_sk
	if tool.invProdBModMSk, err = invert(tool.mSk.ReduceBig(tool.baseB.prod), tool.mSk); err != nil {
		return
	}

	// -prod(q)^-1 mod m~
	var invProdQModMTilde ring.MulOperand
	if invProdQModMTilde, err = invert(tool.mTilde.ReduceBig(baseQ.prod), tool.mTilde); err != nil {
		return
	}
	tool.negInvProdQModMTilde = ring.NewMulOperand(tool.mTilde.Neg(invProdQModMTilde.Operand), tool.mTilde)

	if tool.baseTGamma != nil {

		t, gamma := tool.t, tool.gamma

		// gamma^-1 mod t
		if tool.invGammaModT, err = invert(gamma.Value(), t); err != nil {
			return
		}

		// t*gamma mod q_i
		tool.prodTGammaModQ = make([]ring.MulOperand, sizeQ)
		for i, qi := range baseQ.moduli {
			tool.prodTGammaModQ[i] = ring.NewMulOperand(qi.Mul(qi.Reduce(t.Value()), qi.Reduce(gamma.Value())), qi)
		}

		// -prod(q)^-1 mod {t, gamma}
		tool.negInvQModTGamma = make([]ring.MulOperand, 2)
		for i, m := range tool.baseTGamma.moduli {
			var inv ring.MulOperand
			if inv, err = invert(m.ReduceBig(baseQ.prod), m); err != nil {
				return
			}
			tool.negInvQModTGamma[i] = ring.NewMulOperand(m.Neg(inv.Operand), m)
		}
	}

	// q_last^-1 mod q_i, used by modulus switching
	qLast := baseQ.moduli[sizeQ-1]
	tool.invQLastModQ = make([]ring.MulOperand, sizeQ-1)
	for i, qi := range baseQ.moduli[:sizeQ-1] {
		if tool.invQLastModQ[i], err = invert(qLast.Value(), qi); err != nil {
			return
		}
	}

	return
}

// N returns the ring degree.
func (tool *Tool) N() int {
	return tool.n
}

// PlainModulus returns the plaintext modulus t.
func (tool *Tool) PlainModulus() ring.Modulus {
	return tool.t
}

// MSk returns the Shenoy-Kumaresan auxiliary prime m_sk.
func (tool *Tool) MSk() ring.Modulus {
	return tool.mSk
}

// Gamma returns the decryption auxiliary prime gamma.
func (tool *Tool) Gamma() ring.Modulus {
	return tool.gamma
}

// MTilde returns the Montgomery factor m~ = 2^32.
func (tool *Tool) MTilde() ring.Modulus {
	return tool.mTilde
}

// BaseQ returns the base Q.
func (tool *Tool) BaseQ() *Base {
	return tool.baseQ
}

// BaseB returns the auxiliary base B.
func (tool *Tool) BaseB() *Base {
	return tool.baseB
}

// BaseBsk returns the auxiliary base B U {m_sk}.
func (tool *Tool) BaseBsk() *Base {
	return tool.baseBsk
}

// BaseBskMTilde returns the auxiliary base B U {m_sk, m~}.
func (tool *Tool) BaseBskMTilde() *Base {
	return tool.baseBskMTilde
}

// BaseTGamma returns the base {t, gamma}, or nil if the plaintext modulus is zero.
func (tool *Tool) BaseTGamma() *Base {
	return tool.baseTGamma
}

// BaseBskNTTTables returns the NTT tables of the moduli of B U {m_sk}.
func (tool *Tool) BaseBskNTTTables() []*ring.NTTTable {
	return tool.baseBskNTTTables
}

// InvQLastModQ returns q_last^-1 mod q_i for i < |Q|-1.
func (tool *Tool) InvQLastModQ() []ring.MulOperand {
	return utils.CopyNew(tool.invQLastModQ)
}

func (tool *Tool) checkLength(name string, x []uint64, size int) {
	if len(x) != size*tool.n {
		panic(fmt.Errorf("invalid %s: len=%d but expected %d*%d", name, len(x), size, tool.n))
	}
}
