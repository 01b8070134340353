// Package amount implements a fixed-point decimal amount with nine
// fractional digits, backed by math/big so it never overflows int64 the
// way a naive scaled-integer balance would.
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Scale is 10^9: amounts carry nine fractional digits.
var Scale = big.NewInt(1_000_000_000)

var scaleF = 1e9

// ErrNonFinite is returned when constructing an Amount from a non-finite float.
var ErrNonFinite = errors.New("amount: non-finite value")

// ErrParse is returned when a decimal string cannot be parsed.
var ErrParse = errors.New("amount: cannot parse")

// Amount is a signed fixed-point value, stored as raw*10^-9.
type Amount struct {
	raw *big.Int
}

// Zero is the additive identity.
var Zero = Amount{raw: big.NewInt(0)}

// FromUnits builds an Amount from an integer number of whole units.
func FromUnits(units int64) Amount {
	return Amount{raw: new(big.Int).Mul(big.NewInt(units), Scale)}
}

// FromRaw builds an Amount directly from its scaled representation.
func FromRaw(raw *big.Int) Amount {
	return Amount{raw: new(big.Int).Set(raw)}
}

// FromFloat64 builds an Amount from a float64, rounding toward zero.
// Returns ErrNonFinite for NaN/Inf.
func FromFloat64(v float64) (Amount, error) {
	if v != v || v > 1e300 || v < -1e300 { // NaN / effectively infinite
		return Amount{}, fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	scaled := v * scaleF
	bi, _ := big.NewFloat(scaled).Int(nil)
	return Amount{raw: bi}, nil
}

// FromString parses a decimal string such as "123.456789000".
func FromString(s string) (Amount, error) {
	f, ok := new(big.Float).SetPrec(128).SetString(s)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	scaled := new(big.Float).Mul(f, new(big.Float).SetInt(Scale))
	bi, _ := scaled.Int(nil)
	return Amount{raw: bi}, nil
}

// Raw returns the scaled (10^9) integer representation.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Float64 converts to float64 for solver/math use. Lossy beyond float64 precision.
func (a Amount) Float64() float64 {
	if a.raw == nil {
		return 0
	}
	f := new(big.Float).SetPrec(128).SetInt(a.raw)
	f.Quo(f, new(big.Float).SetInt(Scale))
	out, _ := f.Float64()
	return out
}

// String renders the amount with nine fractional digits.
func (a Amount) String() string {
	r := a.Raw()
	neg := r.Sign() < 0
	if neg {
		r.Neg(r)
	}
	q, rem := new(big.Int).QuoRem(r, Scale, new(big.Int))
	s := fmt.Sprintf("%s.%09d", q.String(), rem.Int64())
	if neg {
		s = "-" + s
	}
	return s
}

// MarshalJSON renders the amount as a decimal string, never a JSON
// number, so callers never round-trip it through float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses a decimal string produced by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

// IsPositive reports a > 0.
func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

// IsNegative reports a < 0.
func (a Amount) IsNegative() bool { return a.raw != nil && a.raw.Sign() < 0 }

// Cmp compares a and b: -1, 0, +1.
func (a Amount) Cmp(b Amount) int { return a.Raw().Cmp(b.Raw()) }

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	return Amount{raw: new(big.Int).Add(a.Raw(), b.Raw())}
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{raw: new(big.Int).Sub(a.Raw(), b.Raw())}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{raw: new(big.Int).Neg(a.Raw())}
}

// Abs returns |a|.
func (a Amount) Abs() Amount {
	return Amount{raw: new(big.Int).Abs(a.Raw())}
}

// MulFloat64 multiplies by a float64 factor (used for SCP-derived fill
// fractions and exponentiated cross-rates), rounding toward zero.
func (a Amount) MulFloat64(factor float64) (Amount, error) {
	if factor != factor || factor > 1e300 || factor < -1e300 {
		return Amount{}, fmt.Errorf("%w: factor %v", ErrNonFinite, factor)
	}
	f := new(big.Float).SetPrec(128).SetInt(a.Raw())
	f.Mul(f, big.NewFloat(factor))
	bi, _ := f.Int(nil)
	return Amount{raw: bi}, nil
}
