package he

import (
	"math/big"
	"math/bits"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/rnsbfv/ring"
	"github.com/tuneinsight/rnsbfv/rns"
	"github.com/tuneinsight/rnsbfv/utils"
	"github.com/tuneinsight/rnsbfv/utils/bignum"
)

// Qualifiers are the properties of a set of [EncryptionParameters] established by [Validate].
type Qualifiers struct {
	// ParameterError is the outcome of the validation.
	ParameterError ErrorType

	// UsingFFT is true if X^N+1 is a power-of-two cyclotomic polynomial.
	UsingFFT bool

	// UsingNTT is true if every prime of the coefficient modulus supports the negacyclic NTT of size N.
	UsingNTT bool

	// UsingBatching is true if the plaintext modulus supports the negacyclic NTT of size N.
	UsingBatching bool

	// UsingFastPlainLift is true if every prime of the coefficient modulus is larger than the
	// plaintext modulus, so that plaintext coefficients lift to RNS without reduction.
	UsingFastPlainLift bool

	// UsingDescendingModulusChain is true if the primes of the coefficient modulus are in
	// strictly decreasing order.
	UsingDescendingModulusChain bool

	// SecLevel is the security level the parameters comply with.
	SecLevel SecurityLevel
}

// ParametersSet returns true if the parameters passed every validation check.
func (q Qualifiers) ParametersSet() bool {
	return q.ParameterError == Success
}

// Equal returns true if both qualifiers are identical.
func (q Qualifiers) Equal(other Qualifiers) bool {
	return cmp.Equal(q, other)
}

// ContextData holds the pre-computation derived from one validated set of [EncryptionParameters].
// It is read-only and safe for concurrent use.
type ContextData struct {
	parms      EncryptionParameters
	qualifiers Qualifiers

	baseQ          *rns.Base
	rnsTool        *rns.Tool
	smallNTTTables []*ring.NTTTable
	plainNTTTable  *ring.NTTTable

	totalCoeffModulus         *big.Int
	totalCoeffModulusBitCount int

	coeffDivPlainModulus        []ring.MulOperand
	upperHalfIncrement          []uint64
	coeffModulusModPlainModulus uint64
	plainUpperHalfThreshold     uint64
	plainUpperHalfIncrement     []uint64

	// Position in the chain of the owning Context, if any.
	context    *Context
	pos        int
	chainIndex int
}

// Validate runs the validation of the parameters for the requested security level and returns
// the resulting [ContextData]. The checks are run in order and the first failing one is
// returned as a [*ConfigError] carrying the qualifiers computed so far.
//
// If the total bit count of the coefficient modulus exceeds the bound of the requested level
// and the level is [SecurityNone], the qualifiers record [SecurityNone] and validation continues.
func Validate(parms EncryptionParameters, sec SecurityLevel) (cd *ContextData, err error) {

	cd = &ContextData{parms: parms}
	q := &cd.qualifiers

	fail := func(e ErrorType) (*ContextData, error) {
		q.ParameterError = e
		return nil, &ConfigError{Type: e, Qualifiers: *q}
	}

	if parms.scheme != BFV {
		return fail(InvalidScheme)
	}

	coeffModulus := parms.coeffModulus
	k := len(coeffModulus)

	if k < MinCoeffModulusCount || k > MaxCoeffModulusCount {
		return fail(InvalidCoeffModulusSize)
	}

	var bitCount int
	for _, qi := range coeffModulus {
		if qi.BitCount() < MinCoeffModulusBitCount || qi.BitCount() > MaxCoeffModulusBitCount {
			return fail(InvalidCoeffModulusBitCount)
		}
		bitCount += qi.BitCount()
	}

	cd.totalCoeffModulus = parms.QBigInt()
	cd.totalCoeffModulusBitCount = cd.totalCoeffModulus.BitLen()

	N := parms.n

	if N < MinPolyModulusDegree || N > MaxPolyModulusDegree {
		return fail(InvalidPolyModulusDegree)
	}

	if !utils.IsPowerOfTwo(N) {
		return fail(InvalidPolyModulusDegreeNonPowerOfTwo)
	}

	logN := bits.Len64(uint64(N)) - 1

	if hi, _ := bits.Mul64(uint64(N), uint64(k)); hi != 0 {
		return fail(InvalidParametersTooLarge)
	}

	// X^N+1 with N a power of two
	q.UsingFFT = true

	q.SecLevel = sec
	if bitCount > sec.MaxBitCount(N) {
		q.SecLevel = SecurityNone
		if sec != SecurityNone {
			return fail(InvalidParametersInsecure)
		}
	}

	q.UsingNTT = true
	if cd.smallNTTTables, err = ring.NewNTTTables(logN, coeffModulus); err != nil {
		q.UsingNTT = false
		return fail(InvalidCoeffModulusNoNTT)
	}

	if cd.baseQ, err = rns.NewBase(coeffModulus); err != nil {
		return fail(FailedCreatingRNSBase)
	}

	if e := cd.initPlainModulus(logN); e != Success {
		return fail(e)
	}

	if cd.rnsTool, err = rns.NewTool(N, cd.baseQ, parms.plainModulus); err != nil {
		return fail(FailedCreatingRNSTool)
	}

	q.UsingDescendingModulusChain = true
	for i := 0; i < k-1; i++ {
		q.UsingDescendingModulusChain = q.UsingDescendingModulusChain && coeffModulus[i].Value() > coeffModulus[i+1].Value()
	}

	q.ParameterError = Success

	return cd, nil
}

// initPlainModulus checks the plaintext modulus and pre-computes the BFV scaling constants.
// It returns the failing [ErrorType], or [Success].
func (cd *ContextData) initPlainModulus(logN int) ErrorType {

	q := &cd.qualifiers
	t := cd.parms.plainModulus
	coeffModulus := cd.parms.coeffModulus

	if t.BitCount() < MinPlainModulusBitCount || t.BitCount() > MaxPlainModulusBitCount {
		return InvalidPlainModulusBitCount
	}

	for _, qi := range coeffModulus {
		if utils.GCD(qi.Value(), t.Value()) != 1 {
			return InvalidPlainModulusCoprimality
		}
	}

	tBig := t.BigInt()

	if tBig.Cmp(cd.totalCoeffModulus) >= 0 {
		return InvalidPlainModulusTooLarge
	}

	// Batching requires t = 1 mod 2N.
	var err error
	q.UsingBatching = true
	if cd.plainNTTTable, err = ring.NewNTTTable(logN, t); err != nil {
		q.UsingBatching = false
		cd.plainNTTTable = nil
	}

	q.UsingFastPlainLift = true
	for _, qi := range coeffModulus {
		q.UsingFastPlainLift = q.UsingFastPlainLift && qi.Value() > t.Value()
	}

	// Delta = floor(Q/t) and Q mod t
	delta, rem := new(big.Int).QuoRem(cd.totalCoeffModulus, tBig, new(big.Int))

	deltaRNS := cd.baseQ.Decompose(delta)
	cd.coeffDivPlainModulus = make([]ring.MulOperand, len(coeffModulus))
	for i, qi := range coeffModulus {
		cd.coeffDivPlainModulus[i] = ring.NewMulOperand(deltaRNS[i], qi)
	}

	cd.coeffModulusModPlainModulus = rem.Uint64()
	cd.upperHalfIncrement = cd.baseQ.Decompose(rem)

	cd.plainUpperHalfThreshold = (t.Value() + 1) >> 1

	// Q - t in RNS, which is q_i - t when using the fast plain lift.
	cd.plainUpperHalfIncrement = cd.baseQ.Decompose(new(big.Int).Sub(cd.totalCoeffModulus, tBig))

	return Success
}

// Parameters returns the parameters of the context data.
func (cd *ContextData) Parameters() EncryptionParameters {
	return cd.parms
}

// ParmsID returns the identifier of the parameters of the context data.
func (cd *ContextData) ParmsID() ParmsID {
	return cd.parms.parmsID
}

// Qualifiers returns the qualifiers established by the validation.
func (cd *ContextData) Qualifiers() Qualifiers {
	return cd.qualifiers
}

// BaseQ returns the RNS base of the coefficient modulus.
func (cd *ContextData) BaseQ() *rns.Base {
	return cd.baseQ
}

// RNSTool returns the BEHZ16 toolkit of the parameters.
func (cd *ContextData) RNSTool() *rns.Tool {
	return cd.rnsTool
}

// SmallNTTTables returns the NTT tables of the primes of the coefficient modulus.
func (cd *ContextData) SmallNTTTables() []*ring.NTTTable {
	return cd.smallNTTTables
}

// PlainNTTTable returns the NTT table of the plaintext modulus, or nil if batching is not supported.
func (cd *ContextData) PlainNTTTable() *ring.NTTTable {
	return cd.plainNTTTable
}

// TotalCoeffModulus returns a copy of the product Q of the primes of the coefficient modulus.
func (cd *ContextData) TotalCoeffModulus() *big.Int {
	return new(big.Int).Set(cd.totalCoeffModulus)
}

// TotalCoeffModulusBitCount returns the bit-length of Q.
func (cd *ContextData) TotalCoeffModulusBitCount() int {
	return cd.totalCoeffModulusBitCount
}

// LogQ returns log2(Q).
func (cd *ContextData) LogQ() float64 {
	return bignum.Log2(cd.totalCoeffModulus, 128)
}

// CoeffDivPlainModulus returns Delta = floor(Q/t) in RNS.
func (cd *ContextData) CoeffDivPlainModulus() []ring.MulOperand {
	return append([]ring.MulOperand{}, cd.coeffDivPlainModulus...)
}

// UpperHalfIncrement returns Q mod t in RNS.
func (cd *ContextData) UpperHalfIncrement() []uint64 {
	return utils.CopyNew(cd.upperHalfIncrement)
}

// CoeffModulusModPlainModulus returns Q mod t.
func (cd *ContextData) CoeffModulusModPlainModulus() uint64 {
	return cd.coeffModulusModPlainModulus
}

// PlainUpperHalfThreshold returns (t+1)/2, the smallest plaintext coefficient lifted as a negative value.
func (cd *ContextData) PlainUpperHalfThreshold() uint64 {
	return cd.plainUpperHalfThreshold
}

// PlainUpperHalfIncrement returns Q - t in RNS.
func (cd *ContextData) PlainUpperHalfIncrement() []uint64 {
	return utils.CopyNew(cd.plainUpperHalfIncrement)
}

// ChainIndex returns the index of the context data in the modulus switching chain:
// 0 for the last level and the chain length minus one for the key level.
func (cd *ContextData) ChainIndex() int {
	return cd.chainIndex
}

// PrevContextData returns the context data of the level above in the chain
// (one more prime), or nil at the key level or outside a [Context].
func (cd *ContextData) PrevContextData() *ContextData {
	if cd.context == nil || cd.pos == 0 {
		return nil
	}
	return cd.context.chain[cd.pos-1]
}

// NextContextData returns the context data of the level below in the chain
// (one prime less), or nil at the last level or outside a [Context].
func (cd *ContextData) NextContextData() *ContextData {
	if cd.context == nil || cd.pos+1 >= len(cd.context.chain) {
		return nil
	}
	return cd.context.chain[cd.pos+1]
}
