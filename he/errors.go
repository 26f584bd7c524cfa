package he

import (
	"fmt"
)

// ErrorType enumerates the outcomes of the validation of [EncryptionParameters].
// The failing values implement error.
type ErrorType int

const (
	// NotValidated is the zero value, for qualifiers that were not produced by [Validate].
	NotValidated = ErrorType(iota)
	Success
	InvalidScheme
	InvalidCoeffModulusSize
	InvalidCoeffModulusBitCount
	InvalidCoeffModulusNoNTT
	InvalidPolyModulusDegree
	InvalidPolyModulusDegreeNonPowerOfTwo
	InvalidParametersTooLarge
	InvalidParametersInsecure
	FailedCreatingRNSBase
	InvalidPlainModulusBitCount
	InvalidPlainModulusCoprimality
	InvalidPlainModulusTooLarge
	// InvalidPlainModulusNonzero is reserved for schemes without plaintext modulus.
	InvalidPlainModulusNonzero
	FailedCreatingRNSTool
)

var errorTypeNames = map[ErrorType]string{
	NotValidated:                          "NotValidated",
	Success:                               "Success",
	InvalidScheme:                         "InvalidScheme",
	InvalidCoeffModulusSize:               "InvalidCoeffModulusSize",
	InvalidCoeffModulusBitCount:           "InvalidCoeffModulusBitCount",
	InvalidCoeffModulusNoNTT:              "InvalidCoeffModulusNoNTT",
	InvalidPolyModulusDegree:              "InvalidPolyModulusDegree",
	InvalidPolyModulusDegreeNonPowerOfTwo: "InvalidPolyModulusDegreeNonPowerOfTwo",
	InvalidParametersTooLarge:             "InvalidParametersTooLarge",
	InvalidParametersInsecure:             "InvalidParametersInsecure",
	FailedCreatingRNSBase:                 "FailedCreatingRNSBase",
	InvalidPlainModulusBitCount:           "InvalidPlainModulusBitCount",
	InvalidPlainModulusCoprimality:        "InvalidPlainModulusCoprimality",
	InvalidPlainModulusTooLarge:           "InvalidPlainModulusTooLarge",
	InvalidPlainModulusNonzero:            "InvalidPlainModulusNonzero",
	FailedCreatingRNSTool:                 "FailedCreatingRNSTool",
}

var errorTypeMessages = map[ErrorType]string{
	NotValidated:                          "parameters were not validated",
	Success:                               "valid",
	InvalidScheme:                         "scheme must be BFV",
	InvalidCoeffModulusSize:               fmt.Sprintf("coefficient modulus must have between %d and %d primes", MinCoeffModulusCount, MaxCoeffModulusCount),
	InvalidCoeffModulusBitCount:           fmt.Sprintf("coefficient modulus primes must have between %d and %d bits", MinCoeffModulusBitCount, MaxCoeffModulusBitCount),
	InvalidCoeffModulusNoNTT:              "coefficient modulus primes must be congruent to 1 modulo 2N",
	InvalidPolyModulusDegree:              fmt.Sprintf("polynomial modulus degree must be between %d and %d", MinPolyModulusDegree, MaxPolyModulusDegree),
	InvalidPolyModulusDegreeNonPowerOfTwo: "polynomial modulus degree must be a power of two",
	InvalidParametersTooLarge:             "parameters are too large",
	InvalidParametersInsecure:             "parameters do not comply with the HomomorphicEncryption.org security standard",
	FailedCreatingRNSBase:                 "coefficient modulus primes must be pairwise coprime",
	InvalidPlainModulusBitCount:           fmt.Sprintf("plaintext modulus must have between %d and %d bits", MinPlainModulusBitCount, MaxPlainModulusBitCount),
	InvalidPlainModulusCoprimality:        "plaintext modulus must be coprime to the coefficient modulus",
	InvalidPlainModulusTooLarge:           "plaintext modulus must be smaller than the coefficient modulus",
	InvalidPlainModulusNonzero:            "plaintext modulus must be zero",
	FailedCreatingRNSTool:                 "RNS tool cannot be created",
}

// String returns the name of the error type.
func (e ErrorType) String() string {
	if name, ok := errorTypeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(e))
}

// Message returns a description of the error type.
func (e ErrorType) Message() string {
	if msg, ok := errorTypeMessages[e]; ok {
		return msg
	}
	return "unknown error"
}

func (e ErrorType) Error() string {
	return e.Message()
}

// ConfigError is the error returned when [EncryptionParameters] fail validation.
// It carries the qualifiers computed up to the failing check.
type ConfigError struct {
	Type       ErrorType
	Qualifiers Qualifiers
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid encryption parameters (%s): %s", e.Type.String(), e.Type.Message())
}

// Unwrap returns the [ErrorType], so that errors.Is(err, InvalidCoeffModulusNoNTT) holds.
func (e *ConfigError) Unwrap() error {
	return e.Type
}
