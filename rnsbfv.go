/*
Package rnsbfv is a pure Go implementation of the residue number system layer of the BFV
homomorphic encryption scheme: CRT bases and base conversions, the BEHZ16 toolkit for
multiplication, modulus switching and decryption, and the validation of encryption
parameters into a modulus switching chain.
*/
package rnsbfv
