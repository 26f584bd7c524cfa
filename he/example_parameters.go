package he

var (
	// ExampleParametersN4096 is a BFV parameter set with N=4096, a 109-bit coefficient modulus
	// and the plaintext modulus 65537, offering 128-bit security.
	ExampleParametersN4096 = ParametersLiteral{
		Scheme: BFV,
		N:      4096,
		LogQ:   []int{37, 36, 36},
		T:      65537,
	}

	// ExampleParametersN8192 is a BFV parameter set with N=8192, a 218-bit coefficient modulus
	// and the plaintext modulus 65537, offering 128-bit security.
	ExampleParametersN8192 = ParametersLiteral{
		Scheme: BFV,
		N:      8192,
		LogQ:   []int{44, 44, 44, 43, 43},
		T:      65537,
	}

	// ExampleParametersN2048 is a BFV parameter set with N=2048, a single 54-bit prime and
	// a 20-bit batching-friendly plaintext modulus, offering 128-bit security.
	ExampleParametersN2048 = ParametersLiteral{
		Scheme: BFV,
		N:      2048,
		LogQ:   []int{54},
		LogT:   20,
	}
)
