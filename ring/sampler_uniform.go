package ring

import (
	"math/bits"

	"github.com/tuneinsight/rnsbfv/utils"
	"github.com/tuneinsight/rnsbfv/utils/sampling"
)

// UniformSampler samples residues uniformly at random modulo a list of moduli.
type UniformSampler struct {
	prng   sampling.PRNG
	moduli []Modulus
}

// NewUniformSampler creates a new instance of UniformSampler from a PRNG and a list of moduli.
func NewUniformSampler(prng sampling.PRNG, moduli []Modulus) (u *UniformSampler) {
	return &UniformSampler{prng: prng, moduli: utils.CopyNew(moduli)}
}

// Read samples out in the RNS layout: len(moduli) contiguous blocks
// of len(out)/len(moduli) residues, block i being uniform in [0, q_i-1].
func (u *UniformSampler) Read(out []uint64) {

	N := len(out) / len(u.moduli)

	for i, m := range u.moduli {

		q := m.value
		mask := uint64(1)<<bits.Len64(q-1) - 1

		coeffs := out[i*N : (i+1)*N]

		for j := range coeffs {
			// Samples an integer between [0, q-1]
			for {
				if coeffs[j] = sampling.ReadUint64(u.prng) & mask; coeffs[j] < q {
					break
				}
			}
		}
	}
}

// ReadNew samples a new array of N residues per modulus.
func (u *UniformSampler) ReadNew(N int) (out []uint64) {
	out = make([]uint64, N*len(u.moduli))
	u.Read(out)
	return
}
