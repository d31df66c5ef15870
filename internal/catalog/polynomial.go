package catalog

import (
	"fmt"
	"math/big"
)

// SalaryPolynomial returns the coefficients, lowest degree first, of the
// unique polynomial p over Z_modulus with p(id) = salary for every country.
// Evaluated homomorphically on an encrypted country id it yields the
// encrypted salary without revealing which country was chosen.
func (c *Catalog) SalaryPolynomial(modulus uint64) ([]uint64, error) {
	if modulus < 2 {
		return nil, fmt.Errorf("catalog: modulus %d is too small", modulus)
	}
	m := new(big.Int).SetUint64(modulus)
	for _, country := range c.countries {
		if uint64(country.ID) >= modulus || country.Salary >= modulus {
			return nil, fmt.Errorf("catalog: country %d does not fit modulus %d", country.ID, modulus)
		}
	}

	n := len(c.countries)
	acc := make([]*big.Int, n)
	for i := range acc {
		acc[i] = new(big.Int)
	}

	for i, ci := range c.countries {
		xi := big.NewInt(int64(ci.ID))
		basis := []*big.Int{big.NewInt(1)}
		denom := big.NewInt(1)
		for j, cj := range c.countries {
			if i == j {
				continue
			}
			xj := big.NewInt(int64(cj.ID))
			basis = mulLinear(basis, xj, m)
			denom.Mul(denom, new(big.Int).Sub(xi, xj))
			denom.Mod(denom, m)
		}
		inv := new(big.Int).ModInverse(denom, m)
		if inv == nil {
			return nil, fmt.Errorf("catalog: ids are not distinct modulo %d", modulus)
		}
		scale := new(big.Int).SetUint64(ci.Salary)
		scale.Mul(scale, inv).Mod(scale, m)
		for k, b := range basis {
			term := new(big.Int).Mul(b, scale)
			acc[k].Add(acc[k], term).Mod(acc[k], m)
		}
	}

	out := make([]uint64, n)
	for k, v := range acc {
		out[k] = v.Uint64()
	}
	return out, nil
}

// mulLinear multiplies poly by (x - root) modulo m.
func mulLinear(poly []*big.Int, root, m *big.Int) []*big.Int {
	out := make([]*big.Int, len(poly)+1)
	for i := range out {
		out[i] = new(big.Int)
	}
	for k, coeff := range poly {
		out[k+1].Add(out[k+1], coeff)
		out[k].Sub(out[k], new(big.Int).Mul(coeff, root))
	}
	for _, v := range out {
		v.Mod(v, m)
	}
	return out
}

// EvaluatePolynomial evaluates coeffs at x modulo modulus in the clear.
func EvaluatePolynomial(coeffs []uint64, x, modulus uint64) uint64 {
	m := new(big.Int).SetUint64(modulus)
	bx := new(big.Int).SetUint64(x)
	result := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		result.Mul(result, bx)
		result.Add(result, new(big.Int).SetUint64(coeffs[i]))
		result.Mod(result, m)
	}
	return result.Uint64()
}
