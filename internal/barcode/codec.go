// Package barcode maps catalog product ids to 13-digit barcodes and back with an
// affine permutation of the integers modulo M. M is composite (7 * 691 * 2067397147)
// but coprime with A, so the map is a bijection and Decode uses the modular
// inverse of A computed by the extended Euclidean algorithm.
package barcode

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

const (
	A uint64 = 982451653
	B uint64 = 1234567891234
	M uint64 = 10000000000039

	// Digits is the printed width of a barcode.
	Digits = 13
)

var (
	ErrOutOfRange     = errors.New("barcode_out_of_range")
	ErrInvalidBarcode = errors.New("invalid_barcode")
)

var (
	bigA    = new(big.Int).SetUint64(A)
	bigB    = new(big.Int).SetUint64(B)
	bigM    = new(big.Int).SetUint64(M)
	bigAInv = modInverse(bigA, bigM)
)

func modInverse(a, m *big.Int) *big.Int {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		panic("barcode: A is not invertible modulo M")
	}
	return inv
}

// Encode returns (A*x + B) mod M. x must lie in [0, M).
func Encode(x uint64) uint64 {
	v := new(big.Int).SetUint64(x)
	v.Mul(v, bigA)
	v.Add(v, bigB)
	v.Mod(v, bigM)
	return v.Uint64()
}

// Decode inverts Encode for any y in [0, M).
func Decode(y uint64) uint64 {
	v := new(big.Int).SetUint64(y)
	v.Sub(v, bigB)
	v.Mod(v, bigM)
	v.Mul(v, bigAInv)
	v.Mod(v, bigM)
	return v.Uint64()
}

// Format renders y zero-padded to Digits. Values at or above 10^13 print wider.
func Format(y uint64) string {
	return fmt.Sprintf("%0*d", Digits, y)
}

// Parse accepts exactly Digits decimal digits.
func Parse(s string) (uint64, error) {
	if len(s) != Digits {
		return 0, ErrInvalidBarcode
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidBarcode
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidBarcode
	}
	return v, nil
}

// EncodeID returns the printable barcode of a product id.
func EncodeID(id int64) (string, error) {
	if id < 0 || uint64(id) >= M {
		return "", ErrOutOfRange
	}
	return Format(Encode(uint64(id))), nil
}

// DecodeID returns the product id a printed barcode was generated from.
func DecodeID(code string) (int64, error) {
	y, err := Parse(code)
	if err != nil {
		return 0, err
	}
	return int64(Decode(y)), nil
}
