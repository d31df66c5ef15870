// Package fhe wraps the lattigo BFV scheme with the operations the payroll
// ledger needs: encrypting small unsigned integers, evaluating a plaintext
// polynomial on a ciphertext and decrypting the first slot.
//
// Ciphertexts cross package boundaries as their binary encoding so callers
// never hold lattigo types.
package fhe

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v4/bfv"
)

// MaxPolynomialDegree is the highest degree EvalPolynomial accepts. Powers
// are built by halving exponents, so degree 4 costs two multiplicative levels,
// the budget PN13QP218 leaves over the default plaintext modulus.
const MaxPolynomialDegree = 4

var (
	paramsOnce sync.Once
	params     bfv.Parameters
	paramsErr  error
)

// Parameters returns the BFV parameter set shared by every FHE Worlds
// process: ring degree 2^13 with a 218-bit modulus, enough for depth-2
// circuits over the default plaintext modulus (see MaxPolynomialDegree).
func Parameters() (bfv.Parameters, error) {
	paramsOnce.Do(func() {
		params, paramsErr = bfv.NewParametersFromLiteral(bfv.PN13QP218)
		if paramsErr != nil {
			paramsErr = fmt.Errorf("fhe parameters: %w", paramsErr)
		}
	})
	return params, paramsErr
}

// PlaintextModulus returns T; encrypted values and polynomial coefficients
// live in Z_T.
func PlaintextModulus() (uint64, error) {
	p, err := Parameters()
	if err != nil {
		return 0, err
	}
	return p.T(), nil
}
