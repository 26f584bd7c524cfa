// Package he implements the encryption parameters of the BFV scheme, their validation against
// the HomomorphicEncryption.org security standard, and the modulus switching chain of
// pre-computed [ContextData] built on the RNS layer.
package he

import (
	"fmt"
	"strings"
)

// Scheme identifies a homomorphic encryption scheme.
type Scheme uint8

const (
	// SchemeNone is the unset scheme.
	SchemeNone = Scheme(iota)
	// BFV is the Brakerski/Fan-Vercauteren scheme.
	BFV
	// CKKS is reserved and rejected by [Validate].
	CKKS
	// BGV is reserved and rejected by [Validate].
	BGV
)

var schemeNames = [...]string{"None", "BFV", "CKKS", "BGV"}

// IsValid returns true if s is one of the defined schemes.
func (s Scheme) IsValid() bool {
	return int(s) < len(schemeNames)
}

func (s Scheme) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
	return schemeNames[s]
}

// MarshalText encodes the scheme by its name.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("cannot MarshalText: invalid scheme %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a scheme name, case insensitive.
func (s *Scheme) UnmarshalText(text []byte) error {
	for i, name := range schemeNames {
		if strings.EqualFold(name, string(text)) {
			*s = Scheme(i)
			return nil
		}
	}
	return fmt.Errorf("cannot UnmarshalText: unknown scheme %q", text)
}
