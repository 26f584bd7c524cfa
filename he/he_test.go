package he

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/rnsbfv/ring"
)

const testT = 65537

func testString(opname string, p EncryptionParameters) string {
	return fmt.Sprintf("%s/N=%d/limbs=%d/T=%d", opname, p.N(), p.QCount(), p.T())
}

// genPrimes returns count primes of logQ bits congruent to 1 mod 2N.
func genPrimes(t *testing.T, logQ, N, count int) []uint64 {
	primes, err := ring.GenerateNTTPrimes(logQ, N<<1, count)
	require.NoError(t, err)
	return primes
}

func newParameters(t *testing.T, scheme Scheme, N int, q []uint64, plain uint64) EncryptionParameters {
	p, err := NewEncryptionParameters(scheme, N, q, plain)
	require.NoError(t, err)
	return p
}

// requireConfigError checks that err is a validation error of type e and returns its qualifiers.
func requireConfigError(t *testing.T, err error, e ErrorType) Qualifiers {
	require.Error(t, err)
	require.True(t, errors.Is(err, e), "expected %s but got %v", e, err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, e, cfgErr.Type)
	require.Equal(t, e, cfgErr.Qualifiers.ParameterError)
	require.False(t, cfgErr.Qualifiers.ParametersSet())
	return cfgErr.Qualifiers
}

func TestHE(t *testing.T) {
	testValidParameters(t)
	testNoNTTPrime(t)
	testValidationErrors(t)
	testBFVConstants(t)
	testChain(t)
	testParmsID(t)
	testParametersLiteral(t)
	testSecurityLevel(t)
	testErrorType(t)
}

func testValidParameters(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 3)
	parms := newParameters(t, BFV, N, q, testT)

	t.Run(testString("Context/Valid", parms), func(t *testing.T) {

		ctx, err := NewContext(parms, true, SecurityNone)
		require.NoError(t, err)
		require.True(t, ctx.ParametersSet())

		qualifiers := ctx.FirstContextData().Qualifiers()
		require.True(t, qualifiers.ParametersSet())
		require.True(t, qualifiers.UsingFFT)
		require.True(t, qualifiers.UsingNTT)
		require.True(t, qualifiers.UsingBatching)
		require.True(t, qualifiers.UsingDescendingModulusChain)
		require.Equal(t, SecurityNone, qualifiers.SecLevel)

		fastPlainLift := true
		for _, qi := range q {
			fastPlainLift = fastPlainLift && qi > testT
		}
		require.Equal(t, fastPlainLift, qualifiers.UsingFastPlainLift)

		key := ctx.KeyContextData()
		require.True(t, key.Qualifiers().ParametersSet())
		require.Equal(t, 90, key.TotalCoeffModulusBitCount())
		require.InDelta(t, 90, key.LogQ(), 0.01)
		require.NotNil(t, key.RNSTool())
		require.NotNil(t, key.PlainNTTTable())
		require.Len(t, key.SmallNTTTables(), 3)
		require.True(t, key.RNSTool().BaseQ().Equal(key.BaseQ()))
	})

	t.Run(testString("Context/Insecure", parms), func(t *testing.T) {

		// 90 bits exceed the 27 bits allowed for N=1024 at 128-bit security.
		_, err := NewContext(parms, true, TC128)
		qualifiers := requireConfigError(t, err, InvalidParametersInsecure)
		require.True(t, qualifiers.UsingFFT)
		require.False(t, qualifiers.UsingNTT)
		require.Equal(t, SecurityNone, qualifiers.SecLevel)
	})

	secure := newParameters(t, BFV, N, genPrimes(t, 27, N, 1), testT)

	t.Run(testString("Context/TC128", secure), func(t *testing.T) {

		ctx, err := NewContext(secure, true, TC128)
		require.NoError(t, err)
		require.True(t, ctx.ParametersSet())
		require.Equal(t, TC128, ctx.FirstContextData().Qualifiers().SecLevel)
		require.Equal(t, TC128, ctx.SecurityLevel())
		require.Equal(t, 1, ctx.ChainLength())
	})
}

func testNoNTTPrime(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 3)

	// A 30-bit prime which is not 1 mod 2N.
	var noNTT uint64
	for noNTT = 1<<30 - 1; !(ring.IsPrime(noNTT) && noNTT%uint64(N<<1) != 1); noNTT -= 2 {
	}
	q[1] = noNTT

	parms := newParameters(t, BFV, N, q, testT)

	t.Run(testString("Validate/NoNTTPrime", parms), func(t *testing.T) {

		_, err := Validate(parms, SecurityNone)
		qualifiers := requireConfigError(t, err, InvalidCoeffModulusNoNTT)
		require.False(t, qualifiers.UsingNTT)
		require.True(t, qualifiers.UsingFFT)

		_, err = NewContext(parms, true, SecurityNone)
		requireConfigError(t, err, InvalidCoeffModulusNoNTT)
	})
}

func testValidationErrors(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 3)
	q61 := genPrimes(t, 61, N, 1)
	q20 := genPrimes(t, 20, N, 1)

	tooMany := make([]uint64, MaxCoeffModulusCount+1)
	for i := range tooMany {
		tooMany[i] = q[0]
	}

	testCases := []struct {
		name   string
		scheme Scheme
		N      int
		q      []uint64
		t      uint64
		err    ErrorType
	}{
		{"SchemeNone", SchemeNone, N, q, testT, InvalidScheme},
		{"SchemeCKKS", CKKS, N, q, 0, InvalidScheme},
		{"SchemeBGV", BGV, N, q, testT, InvalidScheme},
		{"EmptyCoeffModulus", BFV, N, nil, testT, InvalidCoeffModulusSize},
		{"TooManyPrimes", BFV, N, tooMany, testT, InvalidCoeffModulusSize},
		{"61BitPrime", BFV, N, append([]uint64{q61[0]}, q[1:]...), testT, InvalidCoeffModulusBitCount},
		{"ZeroPrime", BFV, N, []uint64{q[0], 0}, testT, InvalidCoeffModulusBitCount},
		{"DegreeTooSmall", BFV, 1, q, testT, InvalidPolyModulusDegree},
		{"DegreeTooLarge", BFV, MaxPolyModulusDegree << 1, q, testT, InvalidPolyModulusDegree},
		{"DegreeNonPowerOfTwo", BFV, 1000, q, testT, InvalidPolyModulusDegreeNonPowerOfTwo},
		{"DuplicatedPrime", BFV, N, []uint64{q[0], q[1], q[0]}, testT, FailedCreatingRNSBase},
		{"PlainModulusZero", BFV, N, q, 0, InvalidPlainModulusBitCount},
		{"PlainModulus61Bits", BFV, N, q, q61[0], InvalidPlainModulusBitCount},
		{"PlainModulusNotCoprime", BFV, N, q, q[2], InvalidPlainModulusCoprimality},
		{"PlainModulusNotCoprimeComposite", BFV, N, q, 3 * q[1], InvalidPlainModulusCoprimality},
		{"PlainModulusTooLarge", BFV, N, q20, 1<<40 + 1, InvalidPlainModulusTooLarge},
	}

	for _, tc := range testCases {

		parms := newParameters(t, tc.scheme, tc.N, tc.q, tc.t)

		t.Run(testString("Validate/"+tc.name, parms), func(t *testing.T) {

			cd, err := Validate(parms, SecurityNone)
			require.Nil(t, cd)
			requireConfigError(t, err, tc.err)

			ctx, err := NewContext(parms, true, SecurityNone)
			require.Nil(t, ctx)
			requireConfigError(t, err, tc.err)
		})
	}

	t.Run("NewEncryptionParameters/Errors", func(t *testing.T) {

		_, err := NewEncryptionParameters(BFV, N, []uint64{q[0], 1}, testT)
		require.Error(t, err)

		_, err = NewEncryptionParameters(BFV, N, []uint64{1 << 62}, testT)
		require.Error(t, err)

		_, err = NewEncryptionParameters(BFV, N, q, 1)
		require.Error(t, err)

		_, err = NewEncryptionParameters(Scheme(7), N, q, testT)
		require.Error(t, err)
	})
}

func testBFVConstants(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 3)
	parms := newParameters(t, BFV, N, q, testT)

	t.Run(testString("ContextData/BFVConstants", parms), func(t *testing.T) {

		cd, err := Validate(parms, SecurityNone)
		require.NoError(t, err)

		Q := parms.QBigInt()
		T := big.NewInt(testT)
		delta, rem := new(big.Int).QuoRem(Q, T, new(big.Int))

		require.Equal(t, 0, Q.Cmp(cd.TotalCoeffModulus()))

		deltaRNS := make([]uint64, len(q))
		for i, op := range cd.CoeffDivPlainModulus() {
			deltaRNS[i] = op.Operand
		}
		require.Equal(t, 0, delta.Cmp(cd.BaseQ().Compose(deltaRNS)))

		require.Equal(t, rem.Uint64(), cd.CoeffModulusModPlainModulus())
		require.Equal(t, 0, rem.Cmp(cd.BaseQ().Compose(cd.UpperHalfIncrement())))

		require.Equal(t, uint64(testT+1)/2, cd.PlainUpperHalfThreshold())

		// The primes are larger than t, so Q - t = q_i - t mod q_i.
		for i, v := range cd.PlainUpperHalfIncrement() {
			require.Equal(t, q[i]-testT, v)
		}

		// The tool decrypts Delta * m.
		tool := cd.RNSTool()
		require.Equal(t, uint64(testT), tool.PlainModulus().Value())

		in := make([]uint64, len(q)*N)
		for i, op := range cd.CoeffDivPlainModulus() {
			for j := 0; j < N; j++ {
				in[i*N+j] = cd.BaseQ().At(i).MulOp(uint64(j), op)
			}
		}

		out := make([]uint64, N)
		tool.DecryptScaleAndRound(in, out)
		for j := range out {
			require.Equal(t, uint64(j), out[j])
		}
	})
}

func testChain(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 4)
	parms := newParameters(t, BFV, N, q, testT)

	t.Run(testString("Context/Chain", parms), func(t *testing.T) {

		ctx, err := NewContext(parms, true, SecurityNone)
		require.NoError(t, err)

		require.Equal(t, 4, ctx.ChainLength())
		require.True(t, ctx.UsingKeySwitching())
		require.Equal(t, parms.ParmsID(), ctx.KeyParmsID())
		require.NotEqual(t, ctx.KeyParmsID(), ctx.FirstParmsID())

		key := ctx.KeyContextData()
		require.Nil(t, key.PrevContextData())
		require.Equal(t, 3, key.ChainIndex())
		require.Equal(t, key.NextContextData(), ctx.FirstContextData())
		require.Equal(t, 2, ctx.FirstContextData().ChainIndex())
		require.Equal(t, 0, ctx.LastContextData().ChainIndex())
		require.Nil(t, ctx.LastContextData().NextContextData())

		ids := map[ParmsID]bool{}
		for cd := key; cd != nil; cd = cd.NextContextData() {

			require.Equal(t, cd.ChainIndex()+1, cd.Parameters().QCount())
			require.Equal(t, q[:cd.Parameters().QCount()], cd.Parameters().Q())
			require.Equal(t, cd, ctx.GetContextData(cd.ParmsID()))
			require.False(t, ids[cd.ParmsID()])
			ids[cd.ParmsID()] = true

			if next := cd.NextContextData(); next != nil {
				require.Equal(t, cd, next.PrevContextData())
				require.Equal(t, cd.ChainIndex()-1, next.ChainIndex())
			}
		}

		require.Len(t, ids, 4)
		require.Equal(t, ctx.LastParmsID(), ctx.LastContextData().ParmsID())
		require.Nil(t, ctx.GetContextData(ParmsID{}))
	})

	t.Run(testString("Context/NoExpansion", parms), func(t *testing.T) {

		ctx, err := NewContext(parms, false, SecurityNone)
		require.NoError(t, err)
		require.Equal(t, 2, ctx.ChainLength())
		require.True(t, ctx.UsingKeySwitching())
		require.Equal(t, ctx.FirstParmsID(), ctx.LastParmsID())
		require.Equal(t, 1, ctx.KeyContextData().ChainIndex())
		require.Equal(t, 0, ctx.FirstContextData().ChainIndex())
	})

	single := parms.WithCoeffModulus(parms.CoeffModulus()[:1])

	t.Run(testString("Context/SingleModulus", single), func(t *testing.T) {

		ctx, err := NewContext(single, true, SecurityNone)
		require.NoError(t, err)
		require.Equal(t, 1, ctx.ChainLength())
		require.False(t, ctx.UsingKeySwitching())
		require.Equal(t, ctx.KeyParmsID(), ctx.FirstParmsID())
		require.Equal(t, ctx.KeyParmsID(), ctx.LastParmsID())
		require.Equal(t, 0, ctx.KeyContextData().ChainIndex())
	})

	// t = 2^25+1 is not prime and lies between the 20-bit prime and the product of the first two primes.
	q20 := genPrimes(t, 20, N, 1)
	shortParms := newParameters(t, BFV, N, []uint64{q20[0], q[0], q[1]}, 1<<25+1)

	t.Run(testString("Context/InvalidDerivedLevel", shortParms), func(t *testing.T) {

		ctx, err := NewContext(shortParms, true, SecurityNone)
		require.NoError(t, err)
		require.Equal(t, 2, ctx.ChainLength())
		require.True(t, ctx.UsingKeySwitching())
		require.Equal(t, 2, ctx.LastContextData().Parameters().QCount())

		qualifiers := ctx.KeyContextData().Qualifiers()
		require.True(t, qualifiers.ParametersSet())
		require.False(t, qualifiers.UsingBatching)
		require.False(t, qualifiers.UsingFastPlainLift)
		require.False(t, qualifiers.UsingDescendingModulusChain)
		require.Nil(t, ctx.KeyContextData().PlainNTTTable())

		// Q - t in RNS without the fast plain lift.
		cd := ctx.KeyContextData()
		QMinusT := new(big.Int).Sub(cd.TotalCoeffModulus(), big.NewInt(1<<25+1))
		require.Equal(t, 0, QMinusT.Cmp(cd.BaseQ().Compose(cd.PlainUpperHalfIncrement())))

		_, err = Validate(ctx.LastContextData().Parameters().dropLastModulus(), SecurityNone)
		requireConfigError(t, err, InvalidPlainModulusTooLarge)
	})

	noFirst := newParameters(t, BFV, N, []uint64{q20[0], q[0]}, 1<<25+1)

	t.Run(testString("Context/InvalidFirstLevel", noFirst), func(t *testing.T) {

		ctx, err := NewContext(noFirst, true, SecurityNone)
		require.NoError(t, err)
		require.Equal(t, 1, ctx.ChainLength())
		require.False(t, ctx.UsingKeySwitching())
		require.Equal(t, ctx.KeyContextData(), ctx.FirstContextData())
		require.True(t, ctx.ParametersSet())
	})
}

func testParmsID(t *testing.T) {

	N := 1024
	q := genPrimes(t, 30, N, 3)
	parms := newParameters(t, BFV, N, q, testT)

	t.Run(testString("ParmsID", parms), func(t *testing.T) {

		require.False(t, parms.ParmsID().IsZero())
		require.True(t, ParmsID{}.IsZero())
		require.Len(t, parms.ParmsID().String(), 64)

		again := newParameters(t, BFV, N, q, testT)
		require.Equal(t, parms.ParmsID(), again.ParmsID())
		require.True(t, parms.Equal(again))

		plain, err := ring.NewModulus(testT)
		require.NoError(t, err)
		require.Equal(t, parms.ParmsID(), parms.WithPlainModulus(plain).ParmsID())

		swapped := []uint64{q[1], q[0], q[2]}

		variants := []EncryptionParameters{
			parms.WithScheme(SchemeNone),
			parms.WithN(2048),
			parms.WithCoeffModulus(parms.CoeffModulus()[:2]),
			parms.WithPlainModulus(ring.Modulus{}),
			newParameters(t, BFV, N, swapped, testT),
			newParameters(t, BFV, N, q, 257),
		}

		for i, v := range variants {
			require.False(t, v.ParmsID().IsZero())
			require.NotEqual(t, parms.ParmsID(), v.ParmsID(), "variant %d", i)
			require.False(t, parms.Equal(v), "variant %d", i)
			for j := 0; j < i; j++ {
				require.NotEqual(t, variants[j].ParmsID(), v.ParmsID())
			}
		}

		// With* derivations leave the receiver unchanged.
		require.Equal(t, 3, parms.QCount())
		require.Equal(t, q, parms.Q())
	})
}

func testParametersLiteral(t *testing.T) {

	for _, literal := range []ParametersLiteral{ExampleParametersN2048, ExampleParametersN4096, ExampleParametersN8192} {

		parms, err := NewParametersFromLiteral(literal)
		require.NoError(t, err)

		t.Run(testString("ParametersLiteral", parms), func(t *testing.T) {

			require.Equal(t, BFV, parms.Scheme())
			require.Equal(t, literal.N, parms.N())
			require.Len(t, parms.Q(), len(literal.LogQ))

			for i, qi := range parms.CoeffModulus() {
				require.Equal(t, literal.LogQ[i], qi.BitCount())
				require.Equal(t, uint64(1), qi.Value()%uint64(literal.N<<1))
			}

			ctx, err := NewContext(parms, true, TC128)
			require.NoError(t, err)
			require.True(t, ctx.ParametersSet())
			require.True(t, ctx.FirstContextData().Qualifiers().UsingBatching)
			require.True(t, ctx.KeyContextData().Qualifiers().UsingDescendingModulusChain)
			require.Equal(t, len(literal.LogQ), ctx.ChainLength())

			data, err := json.Marshal(parms)
			require.NoError(t, err)
			require.Contains(t, string(data), `"Scheme":"BFV"`)

			var decoded EncryptionParameters
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.True(t, parms.Equal(decoded))
			require.Equal(t, parms.ParmsID(), decoded.ParmsID())

			data, err = parms.MarshalBinary()
			require.NoError(t, err)
			require.Len(t, data, parms.BinarySize())

			decoded = EncryptionParameters{}
			require.NoError(t, decoded.UnmarshalBinary(data))
			require.True(t, parms.Equal(decoded))
			require.Equal(t, parms.ParmsID(), decoded.ParmsID())

			stream := new(bytes.Buffer)
			n, err := parms.WriteTo(stream)
			require.NoError(t, err)
			require.Equal(t, int64(parms.BinarySize()), n)

			decoded = EncryptionParameters{}
			n, err = decoded.ReadFrom(stream)
			require.NoError(t, err)
			require.Equal(t, int64(parms.BinarySize()), n)
			require.Equal(t, parms.ParmsID(), decoded.ParmsID())

			require.Error(t, decoded.UnmarshalBinary(data[:len(data)-1]))
		})
	}

	t.Run("ParametersLiteral/Errors", func(t *testing.T) {

		_, err := NewParametersFromLiteral(ParametersLiteral{Scheme: BFV, N: 1024, Q: []uint64{12289}, LogQ: []int{30}, T: testT})
		require.Error(t, err)

		_, err = NewParametersFromLiteral(ParametersLiteral{Scheme: BFV, N: 1024, LogQ: []int{30}, T: testT, LogT: 17})
		require.Error(t, err)

		_, err = NewParametersFromLiteral(ParametersLiteral{Scheme: BFV, N: 1024, LogQ: []int{70}, T: testT})
		require.Error(t, err)

		var p EncryptionParameters
		require.Error(t, json.Unmarshal([]byte(`{"Scheme":"Paillier","N":1024}`), &p))
	})
}

func testSecurityLevel(t *testing.T) {

	t.Run("SecurityLevel", func(t *testing.T) {

		require.Equal(t, 27, TC128.MaxBitCount(1024))
		require.Equal(t, 881, TC128.MaxBitCount(32768))
		require.Equal(t, 305, TC192.MaxBitCount(16384))
		require.Equal(t, 118, TC256.MaxBitCount(8192))
		require.Equal(t, 0, TC128.MaxBitCount(512))
		require.Equal(t, 0, TC128.MaxBitCount(65536))
		require.Equal(t, math.MaxInt, SecurityNone.MaxBitCount(512))

		sec, err := ParseSecurityLevel("tc192")
		require.NoError(t, err)
		require.Equal(t, TC192, sec)
		require.Equal(t, "TC192", sec.String())

		_, err = ParseSecurityLevel("tc512")
		require.Error(t, err)

		logQ, err := DefaultCoeffModulusBitSizes(8192, TC128)
		require.NoError(t, err)
		require.Equal(t, []int{55, 55, 54, 54}, logQ)

		_, err = DefaultCoeffModulusBitSizes(8192, SecurityNone)
		require.Error(t, err)

		_, err = DefaultCoeffModulusBitSizes(512, TC128)
		require.Error(t, err)

		for _, N := range []int{1024, 4096} {

			q, err := DefaultCoeffModulus(N, TC256)
			require.NoError(t, err)

			plain, err := PlainModulusBatching(N, 17)
			require.NoError(t, err)
			require.True(t, ring.IsPrime(plain))
			require.Equal(t, uint64(1), plain%uint64(N<<1))

			parms := newParameters(t, BFV, N, q, plain)

			// The generated primes of the smallest sizes may be below the plaintext modulus.
			cd, err := Validate(parms, TC256)
			if err == nil {
				require.Equal(t, TC256, cd.Qualifiers().SecLevel)
				require.True(t, cd.Qualifiers().UsingBatching)
			} else {
				requireConfigError(t, err, InvalidPlainModulusTooLarge)
			}

			sum := 0
			for _, qi := range parms.CoeffModulus() {
				sum += qi.BitCount()
			}
			require.Equal(t, TC256.MaxBitCount(N), sum)
		}
	})
}

func testErrorType(t *testing.T) {

	t.Run("ErrorType", func(t *testing.T) {

		for e := NotValidated; e <= FailedCreatingRNSTool; e++ {
			require.NotContains(t, e.String(), "ErrorType(")
			require.NotEqual(t, "unknown error", e.Message())
			require.Equal(t, e.Message(), e.Error())
		}

		require.Equal(t, "InvalidCoeffModulusNoNTT", InvalidCoeffModulusNoNTT.String())
		require.Equal(t, "ErrorType(99)", ErrorType(99).String())

		require.False(t, Qualifiers{}.ParametersSet())
		require.Equal(t, NotValidated, Qualifiers{}.ParameterError)

		err := fmt.Errorf("wrapped: %w", &ConfigError{Type: InvalidScheme})
		require.True(t, errors.Is(err, InvalidScheme))
		require.False(t, errors.Is(err, InvalidCoeffModulusSize))
		require.Contains(t, err.Error(), "InvalidScheme")

		require.True(t, Qualifiers{UsingNTT: true}.Equal(Qualifiers{UsingNTT: true}))
		require.False(t, Qualifiers{UsingNTT: true}.Equal(Qualifiers{}))
	})
}
