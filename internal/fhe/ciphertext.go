package fhe

import (
	"errors"
	"fmt"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// ErrMalformedCiphertext marks bytes that are not a fresh ciphertext under the
// shared parameters.
var ErrMalformedCiphertext = errors.New("fhe: malformed ciphertext")

// ParseCiphertext decodes data and checks it is a degree-1 ciphertext at the
// top level whose coefficients are reduced modulo each RNS prime.
func ParseCiphertext(data []byte) (*rlwe.Ciphertext, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedCiphertext)
	}
	ct, err := unmarshalCiphertext(data)
	if err != nil {
		return nil, err
	}
	if err := checkShape(p, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// Validate reports whether data parses as a well-formed ciphertext.
func Validate(data []byte) error {
	_, err := ParseCiphertext(data)
	return err
}

func unmarshalCiphertext(data []byte) (ct *rlwe.Ciphertext, err error) {
	// Decoding untrusted bytes can index out of range inside lattigo.
	defer func() {
		if r := recover(); r != nil {
			ct, err = nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, r)
		}
	}()
	ct = new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return ct, nil
}

func checkShape(p bfv.Parameters, ct *rlwe.Ciphertext) error {
	if ct.Degree() != 1 {
		return fmt.Errorf("%w: degree %d", ErrMalformedCiphertext, ct.Degree())
	}
	if ct.Level() != p.MaxLevel() {
		return fmt.Errorf("%w: level %d, want %d", ErrMalformedCiphertext, ct.Level(), p.MaxLevel())
	}
	moduli := p.Q()
	for _, poly := range ct.Value {
		if poly == nil || len(poly.Coeffs) != len(moduli) {
			return fmt.Errorf("%w: wrong modulus count", ErrMalformedCiphertext)
		}
		for i, row := range poly.Coeffs {
			if len(row) != p.N() {
				return fmt.Errorf("%w: ring degree %d, want %d", ErrMalformedCiphertext, len(row), p.N())
			}
			for _, c := range row {
				if c >= moduli[i] {
					return fmt.Errorf("%w: coefficient not reduced", ErrMalformedCiphertext)
				}
			}
		}
	}
	return nil
}

func marshalCiphertext(ct *rlwe.Ciphertext) ([]byte, error) {
	data, err := ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode ciphertext: %w", err)
	}
	return data, nil
}
