package fhe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// Evaluator runs homomorphic circuits with the public evaluation keys.
// It is safe for concurrent use.
type Evaluator struct {
	mu      sync.Mutex
	params  bfv.Parameters
	encoder bfv.Encoder
	eval    bfv.Evaluator
}

// NewEvaluator returns an evaluator using keys.Relin for relinearization.
func NewEvaluator(keys *KeySet) (*Evaluator, error) {
	if keys == nil || keys.Relin == nil {
		return nil, errors.New("fhe: relinearization key is required")
	}
	return &Evaluator{
		params:  keys.Params,
		encoder: bfv.NewEncoder(keys.Params),
		eval:    bfv.NewEvaluator(keys.Params, rlwe.EvaluationKey{Rlk: keys.Relin}),
	}, nil
}

// EvalPolynomial returns Enc(c0 + c1·x + … + cd·x^d mod T) for the encrypted
// x in data. Coefficients must already be reduced modulo T. Powers are built
// by splitting exponents in half so the multiplicative depth is ceil(log2 d);
// d may not exceed MaxPolynomialDegree.
func (e *Evaluator) EvalPolynomial(data []byte, coeffs []uint64) ([]byte, error) {
	if len(coeffs) == 0 {
		return nil, errors.New("fhe: polynomial has no coefficients")
	}
	if len(coeffs)-1 > MaxPolynomialDegree {
		return nil, fmt.Errorf("fhe: polynomial degree %d exceeds %d", len(coeffs)-1, MaxPolynomialDegree)
	}
	for _, c := range coeffs {
		if c >= e.params.T() {
			return nil, errors.New("fhe: coefficient exceeds plaintext modulus")
		}
	}
	x, err := ParseCiphertext(data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	degree := len(coeffs) - 1
	powers := make([]*rlwe.Ciphertext, max(degree, 1)+1)
	powers[1] = x
	for i := 2; i <= degree; i++ {
		half := i / 2
		p := e.eval.MulNew(powers[half], powers[i-half])
		e.eval.Relinearize(p, p)
		powers[i] = p
	}

	var c1 uint64
	if degree >= 1 {
		c1 = coeffs[1]
	}
	acc := e.eval.MulScalarNew(powers[1], c1)
	for i := 2; i <= degree; i++ {
		if coeffs[i] == 0 {
			continue
		}
		e.eval.Add(acc, e.eval.MulScalarNew(powers[i], coeffs[i]), acc)
	}
	if coeffs[0] != 0 {
		constant := e.encoder.EncodeNew([]uint64{coeffs[0]}, acc.Level())
		e.eval.Add(acc, constant, acc)
	}
	return marshalCiphertext(acc)
}
