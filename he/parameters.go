package he

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/rnsbfv/ring"
	"github.com/tuneinsight/rnsbfv/utils"
	"github.com/tuneinsight/rnsbfv/utils/bignum"
	"github.com/tuneinsight/rnsbfv/utils/buffer"
)

const (
	// MinPolyModulusDegree is the smallest supported ring degree.
	MinPolyModulusDegree = 2
	// MaxPolyModulusDegree is the largest supported ring degree.
	MaxPolyModulusDegree = 131072

	// MinCoeffModulusCount is the smallest number of primes of the coefficient modulus.
	MinCoeffModulusCount = 1
	// MaxCoeffModulusCount is the largest number of primes of the coefficient modulus.
	MaxCoeffModulusCount = 64

	// MinCoeffModulusBitCount is the smallest bit-length of a prime of the coefficient modulus.
	MinCoeffModulusBitCount = 2
	// MaxCoeffModulusBitCount is the largest bit-length of a prime of the coefficient modulus.
	MaxCoeffModulusBitCount = 60

	// MinPlainModulusBitCount is the smallest bit-length of the plaintext modulus.
	MinPlainModulusBitCount = 2
	// MaxPlainModulusBitCount is the largest bit-length of the plaintext modulus.
	MaxPlainModulusBitCount = 60
)

// ParametersLiteral is a literal representation of BFV encryption parameters. It has public
// fields and is used to express unchecked user-defined parameters literally into Go programs.
// The [NewParametersFromLiteral] function is used to generate the actual parameters.
//
// Users must set the scheme, the ring degree N and the coefficient modulus, by either setting
// the Q field to the desired primes, or by setting the LogQ field to the desired prime sizes.
// The plaintext modulus is given either by T, or by its bit size LogT, in which case a
// batching-friendly prime is generated.
type ParametersLiteral struct {
	Scheme Scheme
	N      int
	Q      []uint64 `json:",omitempty"`
	LogQ   []int    `json:",omitempty"`
	T      uint64   `json:",omitempty"`
	LogT   int      `json:",omitempty"`
}

// EncryptionParameters is an immutable set of encryption parameters together with
// its content hash [ParmsID]. Derived parameters are obtained with the With* methods.
// The values are not checked beyond what a [ring.Modulus] can hold: see [Validate].
type EncryptionParameters struct {
	scheme       Scheme
	n            int
	coeffModulus []ring.Modulus
	plainModulus ring.Modulus
	parmsID      ParmsID
}

// NewEncryptionParameters returns the [EncryptionParameters] for the given scheme, ring degree N,
// coefficient modulus primes q and plaintext modulus t (0 for none).
// It returns an error if the scheme is undefined or if a modulus is 1 or larger than 61 bits.
func NewEncryptionParameters(scheme Scheme, N int, q []uint64, t uint64) (p EncryptionParameters, err error) {

	var coeffModulus []ring.Modulus
	if coeffModulus, err = ring.NewModuli(q); err != nil {
		return EncryptionParameters{}, fmt.Errorf("cannot NewEncryptionParameters: coefficient modulus: %w", err)
	}

	var plainModulus ring.Modulus
	if plainModulus, err = ring.NewModulus(t); err != nil {
		return EncryptionParameters{}, fmt.Errorf("cannot NewEncryptionParameters: plaintext modulus: %w", err)
	}

	if !scheme.IsValid() {
		return EncryptionParameters{}, fmt.Errorf("cannot NewEncryptionParameters: invalid scheme %d", uint8(scheme))
	}

	return newEncryptionParameters(scheme, N, coeffModulus, plainModulus), nil
}

func newEncryptionParameters(scheme Scheme, N int, coeffModulus []ring.Modulus, plainModulus ring.Modulus) EncryptionParameters {
	coeffModulus = utils.CopyNew(coeffModulus)
	return EncryptionParameters{
		scheme:       scheme,
		n:            N,
		coeffModulus: coeffModulus,
		plainModulus: plainModulus,
		parmsID:      computeParmsID(scheme, N, coeffModulus, plainModulus),
	}
}

// NewParametersFromLiteral instantiates [EncryptionParameters] from a [ParametersLiteral].
//
// If the coefficient modulus is specified through the LogQ field, the method generates distinct
// primes congruent to 1 modulo 2N of the given sizes. If the plaintext modulus is specified through
// the LogT field, the method uses [PlainModulusBatching].
func NewParametersFromLiteral(paramDef ParametersLiteral) (p EncryptionParameters, err error) {

	if paramDef.Q != nil && paramDef.LogQ != nil {
		return EncryptionParameters{}, fmt.Errorf("cannot NewParametersFromLiteral: both Q and LogQ fields are set")
	}

	if paramDef.T != 0 && paramDef.LogT != 0 {
		return EncryptionParameters{}, fmt.Errorf("cannot NewParametersFromLiteral: both T and LogT fields are set")
	}

	q := paramDef.Q
	if paramDef.LogQ != nil {
		if q, err = genModuli(paramDef.N, paramDef.LogQ); err != nil {
			return EncryptionParameters{}, fmt.Errorf("cannot NewParametersFromLiteral: unable to generate the coefficient modulus: %w", err)
		}
	}

	t := paramDef.T
	if paramDef.LogT != 0 {
		if t, err = PlainModulusBatching(paramDef.N, paramDef.LogT); err != nil {
			return EncryptionParameters{}, fmt.Errorf("cannot NewParametersFromLiteral: unable to generate the plaintext modulus: %w", err)
		}
	}

	return NewEncryptionParameters(paramDef.Scheme, paramDef.N, q, t)
}

// ParametersLiteral returns the [ParametersLiteral] of the target parameters.
func (p EncryptionParameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		Scheme: p.scheme,
		N:      p.n,
		Q:      p.Q(),
		T:      p.plainModulus.Value(),
	}
}

// Scheme returns the scheme.
func (p EncryptionParameters) Scheme() Scheme {
	return p.scheme
}

// N returns the ring degree.
func (p EncryptionParameters) N() int {
	return p.n
}

// CoeffModulus returns a copy of the primes of the coefficient modulus.
func (p EncryptionParameters) CoeffModulus() []ring.Modulus {
	return utils.CopyNew(p.coeffModulus)
}

// Q returns the values of the primes of the coefficient modulus.
func (p EncryptionParameters) Q() []uint64 {
	return ring.ModuliValues(p.coeffModulus)
}

// QCount returns the number of primes of the coefficient modulus.
func (p EncryptionParameters) QCount() int {
	return len(p.coeffModulus)
}

// PlainModulus returns the plaintext modulus.
func (p EncryptionParameters) PlainModulus() ring.Modulus {
	return p.plainModulus
}

// T returns the value of the plaintext modulus.
func (p EncryptionParameters) T() uint64 {
	return p.plainModulus.Value()
}

// ParmsID returns the content hash of the parameters.
func (p EncryptionParameters) ParmsID() ParmsID {
	return p.parmsID
}

// QBigInt returns the product of the primes of the coefficient modulus.
func (p EncryptionParameters) QBigInt() *big.Int {
	Q := big.NewInt(1)
	for _, qi := range p.coeffModulus {
		Q.Mul(Q, qi.BigInt())
	}
	return Q
}

// LogQ returns log2 of the coefficient modulus, or 0 if it is empty.
func (p EncryptionParameters) LogQ() float64 {
	if len(p.coeffModulus) == 0 {
		return 0
	}
	return bignum.Log2(p.QBigInt(), 128)
}

// WithScheme returns a copy of the parameters with the given scheme.
func (p EncryptionParameters) WithScheme(scheme Scheme) EncryptionParameters {
	return newEncryptionParameters(scheme, p.n, p.coeffModulus, p.plainModulus)
}

// WithN returns a copy of the parameters with the given ring degree.
func (p EncryptionParameters) WithN(N int) EncryptionParameters {
	return newEncryptionParameters(p.scheme, N, p.coeffModulus, p.plainModulus)
}

// WithCoeffModulus returns a copy of the parameters with the given coefficient modulus.
func (p EncryptionParameters) WithCoeffModulus(coeffModulus []ring.Modulus) EncryptionParameters {
	return newEncryptionParameters(p.scheme, p.n, coeffModulus, p.plainModulus)
}

// WithPlainModulus returns a copy of the parameters with the given plaintext modulus.
func (p EncryptionParameters) WithPlainModulus(plainModulus ring.Modulus) EncryptionParameters {
	return newEncryptionParameters(p.scheme, p.n, p.coeffModulus, plainModulus)
}

// dropLastModulus returns a copy of the parameters without the last prime of the coefficient modulus.
func (p EncryptionParameters) dropLastModulus() EncryptionParameters {
	return p.WithCoeffModulus(p.coeffModulus[:len(p.coeffModulus)-1])
}

// Equal returns true if both parameters have the same scheme, ring degree and moduli.
func (p EncryptionParameters) Equal(other EncryptionParameters) (res bool) {
	res = p.scheme == other.scheme
	res = res && p.n == other.n
	res = res && cmp.Equal(p.Q(), other.Q())
	res = res && p.plainModulus.Equal(other.plainModulus)
	return
}

func (p EncryptionParameters) String() string {
	return fmt.Sprintf("{Scheme: %s, N: %d, Q: %v, T: %d}", p.scheme, p.n, p.Q(), p.T())
}

// MarshalJSON returns the JSON representation of the [ParametersLiteral] of the parameters.
func (p EncryptionParameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a [ParametersLiteral] into the receiver.
func (p *EncryptionParameters) UnmarshalJSON(data []byte) (err error) {
	var paramDef ParametersLiteral
	if err = json.Unmarshal(data, &paramDef); err != nil {
		return err
	}
	*p, err = NewParametersFromLiteral(paramDef)
	return
}

// BinarySize returns the serialized size of the parameters in bytes.
func (p EncryptionParameters) BinarySize() int {
	return 1 + 8*(len(p.coeffModulus)+3)
}

// WriteTo writes the parameters on w as the scheme on one byte followed by N, the number of
// primes, the primes and the plaintext modulus, each on eight bytes in little-endian.
//
// If w is not a [buffer.Writer], it is wrapped in a bufio.Writer which is flushed before returning.
func (p EncryptionParameters) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteUint8(w, uint8(p.scheme)); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteUint64(w, uint64(p.n)); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteUint64(w, uint64(len(p.coeffModulus))); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteUint64Slice(w, p.Q()); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteUint64(w, p.plainModulus.Value()); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()

	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads parameters written by [EncryptionParameters.WriteTo] from r into the receiver.
//
// If r is not a [buffer.Reader], it is wrapped in a bufio.Reader.
func (p *EncryptionParameters) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int
		var scheme uint8
		var N, k, t uint64

		if inc, err = buffer.ReadUint8(r, &scheme); err != nil {
			return n + int64(inc), err
		}
		n += int64(inc)

		if inc, err = buffer.ReadUint64(r, &N); err != nil {
			return n + int64(inc), err
		}
		n += int64(inc)

		if inc, err = buffer.ReadUint64(r, &k); err != nil {
			return n + int64(inc), err
		}
		n += int64(inc)

		if k > MaxCoeffModulusCount {
			return n, fmt.Errorf("cannot ReadFrom: coefficient modulus has %d primes but at most %d are supported", k, MaxCoeffModulusCount)
		}

		q := make([]uint64, k)
		if inc, err = buffer.ReadUint64Slice(r, q); err != nil {
			return n + int64(inc), err
		}
		n += int64(inc)

		if inc, err = buffer.ReadUint64(r, &t); err != nil {
			return n + int64(inc), err
		}
		n += int64(inc)

		if N > MaxPolyModulusDegree {
			return n, fmt.Errorf("cannot ReadFrom: N=%d exceeds %d", N, MaxPolyModulusDegree)
		}

		if *p, err = NewEncryptionParameters(Scheme(scheme), int(N), q, t); err != nil {
			return n, fmt.Errorf("cannot ReadFrom: %w", err)
		}

		return

	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the parameters on a slice of bytes, see [EncryptionParameters.WriteTo].
func (p EncryptionParameters) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err = p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by [EncryptionParameters.MarshalBinary] into the receiver.
func (p *EncryptionParameters) UnmarshalBinary(data []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(data))
	return
}
