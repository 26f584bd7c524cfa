package he

import (
	"fmt"
	"math"
	"strings"

	"github.com/tuneinsight/rnsbfv/ring"
)

// SecurityLevel is a classical security level of the HomomorphicEncryption.org standard.
type SecurityLevel int

const (
	// SecurityNone disables the security check.
	SecurityNone = SecurityLevel(iota)
	// TC128 is 128-bit classical security.
	TC128
	// TC192 is 192-bit classical security.
	TC192
	// TC256 is 256-bit classical security.
	TC256
)

var securityLevelNames = [...]string{"None", "TC128", "TC192", "TC256"}

// maxBitCounts[level][log2(N)-10] is the largest total bit count of the coefficient modulus
// for a ternary secret, for N from 1024 to 32768.
var maxBitCounts = [...][6]int{
	TC128: {27, 54, 109, 218, 438, 881},
	TC192: {19, 37, 75, 152, 305, 611},
	TC256: {14, 29, 58, 118, 237, 476},
}

func (sec SecurityLevel) String() string {
	if sec < 0 || int(sec) >= len(securityLevelNames) {
		return fmt.Sprintf("SecurityLevel(%d)", int(sec))
	}
	return securityLevelNames[sec]
}

// ParseSecurityLevel returns the security level of the given name, case insensitive.
func ParseSecurityLevel(name string) (SecurityLevel, error) {
	for i, s := range securityLevelNames {
		if strings.EqualFold(s, name) {
			return SecurityLevel(i), nil
		}
	}
	return SecurityNone, fmt.Errorf("unknown security level %q", name)
}

// MaxBitCount returns the largest total bit count of a coefficient modulus for the ring degree N
// at this security level. It returns 0 if N is not tabulated, and [math.MaxInt] for [SecurityNone].
func (sec SecurityLevel) MaxBitCount(N int) int {

	if sec == SecurityNone {
		return math.MaxInt
	}

	if sec < TC128 || sec > TC256 {
		return 0
	}

	for i, logN := 0, 10; i < 6; i, logN = i+1, logN+1 {
		if N == 1<<logN {
			return maxBitCounts[sec][i]
		}
	}

	return 0
}

// DefaultCoeffModulusBitSizes returns the bit sizes of a coefficient modulus of at most
// 60-bit primes whose total bit count is the maximum allowed for N at the given security level.
// The sizes are as balanced as possible, larger first.
func DefaultCoeffModulusBitSizes(N int, sec SecurityLevel) (logQ []int, err error) {

	if sec == SecurityNone {
		return nil, fmt.Errorf("cannot DefaultCoeffModulusBitSizes: security level must not be None")
	}

	total := sec.MaxBitCount(N)
	if total == 0 {
		return nil, fmt.Errorf("cannot DefaultCoeffModulusBitSizes: no security bound for N=%d at %s", N, sec)
	}

	count := (total + MaxCoeffModulusBitCount - 1) / MaxCoeffModulusBitCount

	logQ = make([]int, count)
	for i := range logQ {
		logQ[i] = total / count
		if i < total%count {
			logQ[i]++
		}
	}

	return
}

// DefaultCoeffModulus returns NTT-friendly primes for N matching [DefaultCoeffModulusBitSizes].
func DefaultCoeffModulus(N int, sec SecurityLevel) (q []uint64, err error) {

	var logQ []int
	if logQ, err = DefaultCoeffModulusBitSizes(N, sec); err != nil {
		return
	}

	if q, err = genModuli(N, logQ); err != nil {
		return nil, fmt.Errorf("cannot DefaultCoeffModulus: %w", err)
	}

	return
}

// PlainModulusBatching returns the largest prime of exactly bitSize bits that is congruent
// to 1 modulo 2N, which enables batching for the ring degree N.
func PlainModulusBatching(N, bitSize int) (t uint64, err error) {

	var primes []uint64
	if primes, err = ring.GenerateNTTPrimes(bitSize, N<<1, 1); err != nil {
		return 0, fmt.Errorf("cannot PlainModulusBatching: %w", err)
	}

	return primes[0], nil
}

// genModuli returns, for each entry of logQ, a distinct prime of that many bits congruent to 1 mod 2N.
func genModuli(N int, logQ []int) (q []uint64, err error) {

	if N < 1 {
		return nil, fmt.Errorf("cannot genModuli: invalid N=%d", N)
	}

	count := map[int]int{}
	for _, logqi := range logQ {
		count[logqi]++
	}

	primes := map[int][]uint64{}
	for logqi, n := range count {
		if primes[logqi], err = ring.GenerateNTTPrimes(logqi, N<<1, n); err != nil {
			return nil, fmt.Errorf("cannot genModuli: %w", err)
		}
	}

	q = make([]uint64, len(logQ))
	for i, logqi := range logQ {
		q[i] = primes[logqi][0]
		primes[logqi] = primes[logqi][1:]
	}

	return
}
