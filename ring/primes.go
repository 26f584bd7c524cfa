package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// IsPrime applies the Baillie-PSW, which is 100% accurate for numbers bellow 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// GenerateNTTPrimes generates n NthRoot NTT-friendly primes of exactly logQ bits,
// that is primes q = 1 mod NthRoot with 2^(logQ-1) < q < 2^logQ.
// The primes are returned in decreasing order, starting from the closest to 2^logQ.
func GenerateNTTPrimes(logQ, NthRoot, n int) (primes []uint64, err error) {

	if logQ < 2 || logQ > MaxModulusBitCount {
		return nil, fmt.Errorf("cannot GenerateNTTPrimes: logQ must be between 2 and %d but is %d", MaxModulusBitCount, logQ)
	}

	if NthRoot <= 0 || bits.Len64(uint64(NthRoot)) > logQ {
		return nil, fmt.Errorf("cannot GenerateNTTPrimes: NthRoot=%d is not compatible with logQ=%d", NthRoot, logQ)
	}

	primes = make([]uint64, 0, n)

	// 2^logQ + 1 is an NTT-friendly candidate, the first candidate strictly below 2^logQ is one step down.
	q := uint64(1)<<logQ + 1

	for len(primes) < n {
		if q, err = PreviousNTTPrime(q, NthRoot); err != nil || bits.Len64(q) < logQ {
			return nil, fmt.Errorf("cannot GenerateNTTPrimes: not enough %d-bit primes = 1 mod %d (found %d out of %d)", logQ, NthRoot, len(primes), n)
		}
		primes = append(primes, q)
	}

	return
}

// NextNTTPrime returns the next NthRoot NTT prime after q.
// The input q must be itself an NTT prime for the given NthRoot.
func NextNTTPrime(q uint64, NthRoot int) (qNext uint64, err error) {

	qNext = q + uint64(NthRoot)

	for !IsPrime(qNext) {

		qNext += uint64(NthRoot)

		if bits.Len64(qNext) > MaxModulusBitCount {
			return 0, fmt.Errorf("next NTT prime exceeds the maximum bit-size of %d bits", MaxModulusBitCount)
		}
	}

	return qNext, nil
}

// PreviousNTTPrime returns the previous NthRoot NTT prime before q.
// The input q must be congruent to 1 mod NthRoot.
func PreviousNTTPrime(q uint64, NthRoot int) (qPrev uint64, err error) {

	if q <= uint64(NthRoot) {
		return 0, fmt.Errorf("previous NTT prime is smaller than NthRoot")
	}

	qPrev = q - uint64(NthRoot)

	for !IsPrime(qPrev) {

		if qPrev <= uint64(NthRoot) {
			return 0, fmt.Errorf("previous NTT prime is smaller than NthRoot")
		}

		qPrev -= uint64(NthRoot)
	}

	return qPrev, nil
}

// PrimitiveRoot returns the smallest primitive NthRoot-th root of unity modulo the prime q,
// where NthRoot is a power of two dividing q-1.
func PrimitiveRoot(q uint64, NthRoot int) (root uint64, err error) {

	if NthRoot < 2 || NthRoot&(NthRoot-1) != 0 {
		return 0, fmt.Errorf("cannot PrimitiveRoot: NthRoot=%d is not a power of two greater than one", NthRoot)
	}

	if !IsPrime(q) {
		return 0, fmt.Errorf("cannot PrimitiveRoot: %d is not prime", q)
	}

	if (q-1)%uint64(NthRoot) != 0 {
		return 0, fmt.Errorf("cannot PrimitiveRoot: %d is not congruent to 1 mod %d", q, NthRoot)
	}

	u := GenBRedConstant(q)
	half := uint64(NthRoot >> 1)
	exp := (q - 1) / uint64(NthRoot)

	// g^((q-1)/NthRoot) has order NthRoot iff it is a square root of -1 raised to NthRoot/2.
	var candidate uint64
	for g := uint64(2); g < q; g++ {
		candidate = ModExp(g, exp, q, u)
		if ModExp(candidate, half, q, u) == q-1 {
			break
		}
	}

	// All primitive NthRoot-th roots are the odd powers of candidate, the smallest one is kept.
	root = candidate
	square := BRed(candidate, candidate, q, u)
	current := candidate
	for i := uint64(1); i < half; i++ {
		current = BRed(current, square, q, u)
		if current < root {
			root = current
		}
	}

	return root, nil
}
