// Package fixed provides the fixed-point arithmetic helpers shared by the
// protocol accounting modules. Amounts are big integers in native token
// decimals, prices and values use the 8-decimal oracle scale, ratios and
// factors are expressed in basis points (1e4 = 100%) and the pooled deposit
// indices use RAY (1e27) precision.
package fixed

import "math/big"

const (
	// OracleDecimals is the precision every price and value is normalised to.
	OracleDecimals = 8
	// BpsOne is 100% in basis points.
	BpsOne = 10_000
)

var (
	// Wad is the 18-decimal unit used for amount normalisation.
	Wad = mustBigInt("1000000000000000000")
	// Ray is the 27-decimal unit used for liquidity and fee indices.
	Ray = mustBigInt("1000000000000000000000000000")
	// Bps is 100% in basis points as a big integer.
	Bps = big.NewInt(BpsOne)

	halfWad = new(big.Int).Rsh(Wad, 1)
	halfRay = new(big.Int).Rsh(Ray, 1)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Clone returns a defensive copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if Clone(a).Cmp(Clone(b)) <= 0 {
		return Clone(a)
	}
	return Clone(b)
}

// WadMul computes a*b/1e18 with half-up rounding.
func WadMul(a, b *big.Int) *big.Int {
	if IsZero(a) || IsZero(b) {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfWad)
	return product.Quo(product, Wad)
}

// WadDiv computes a*1e18/b with half-up rounding.
func WadDiv(a, b *big.Int) *big.Int {
	if IsZero(a) || IsZero(b) {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, Wad)
	numerator.Add(numerator, halfUp(b))
	return numerator.Quo(numerator, b)
}

// RayMul computes a*b/1e27 with half-up rounding.
func RayMul(a, b *big.Int) *big.Int {
	if IsZero(a) || IsZero(b) {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	return product.Quo(product, Ray)
}

// RayDiv computes a*1e27/b with half-up rounding.
func RayDiv(a, b *big.Int) *big.Int {
	if IsZero(a) || IsZero(b) {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, Ray)
	numerator.Add(numerator, halfUp(b))
	return numerator.Quo(numerator, b)
}

// PercentMul applies a basis-point factor: a*bps/1e4.
func PercentMul(a *big.Int, bps uint64) *big.Int {
	if IsZero(a) || bps == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, new(big.Int).SetUint64(bps))
	product.Add(product, halfUp(Bps))
	return product.Quo(product, Bps)
}

// PercentDiv computes the basis-point ratio a*1e4/b. A zero divisor yields
// zero so callers can treat "no debt" as the caller-defined maximum.
func PercentDiv(a, b *big.Int) *big.Int {
	if IsZero(a) || IsZero(b) {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, Bps)
	numerator.Add(numerator, halfUp(b))
	return numerator.Quo(numerator, b)
}

// ToWad rescales an amount from the supplied token decimals to 18 decimals.
// Sources between 6 and 24 decimals are supported without precision loss on
// the upscale path.
func ToWad(amount *big.Int, decimals uint8) *big.Int {
	if IsZero(amount) {
		return big.NewInt(0)
	}
	if decimals == 18 {
		return Clone(amount)
	}
	if decimals < 18 {
		scale := pow10(18 - int(decimals))
		return new(big.Int).Mul(amount, scale)
	}
	scale := pow10(int(decimals) - 18)
	out := new(big.Int).Add(amount, halfUp(scale))
	return out.Quo(out, scale)
}

// FromWad rescales an 18-decimal amount back to the supplied token decimals.
func FromWad(amount *big.Int, decimals uint8) *big.Int {
	if IsZero(amount) {
		return big.NewInt(0)
	}
	if decimals == 18 {
		return Clone(amount)
	}
	if decimals < 18 {
		scale := pow10(18 - int(decimals))
		out := new(big.Int).Add(amount, halfUp(scale))
		return out.Quo(out, scale)
	}
	scale := pow10(int(decimals) - 18)
	return new(big.Int).Mul(amount, scale)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func halfUp(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	half := new(big.Int).Add(x, big.NewInt(1))
	return half.Rsh(half, 1)
}
