package math

import "math/big"

// IntSqrt is floor(sqrt(value)) by Newton's method. It starts at x0 = value
// and stops as soon as the next iterate no longer decreases.
func IntSqrt(value *big.Int) *big.Int {
	if value.Sign() <= 0 {
		return new(big.Int)
	}
	x := new(big.Int).Set(value)
	next := new(big.Int)
	tmp := new(big.Int)
	for {
		tmp.Quo(value, x)
		next.Add(x, tmp)
		next.Rsh(next, 1)
		if next.Cmp(x) >= 0 {
			return x
		}
		x.Set(next)
	}
}
