package record

import (
	"fmt"
	"math/big"
)

// DecimalByteWidth is the fixed on-disk size of a Decimal value
// (spec.md §4.3: "Decimal is serialised as a fixed 16-byte
// representation that encodes precision-preserving value and sign").
const DecimalByteWidth = 16

// decimalMagnitudeWidth is DecimalByteWidth minus one sign byte.
const decimalMagnitudeWidth = DecimalByteWidth - 1

// Decimal is a fixed-point value: unscaled * 10^-scale, with a
// precision/scale pair carried alongside for column validation. The
// on-disk representation (see Encode/DecodeDecimal) is a sign byte
// followed by a 120-bit big-endian unsigned magnitude of the unscaled
// integer; this is Open Question resolution 4 in SPEC_FULL.md.
type Decimal struct {
	Unscaled  *big.Int // value * 10^scale, may be negative
	Precision int
	Scale     int
}

// NewDecimalFromString parses a base-10 literal like "-123.450" into a
// Decimal with the given (precision, scale). The literal's fractional
// digits must not exceed scale.
func NewDecimalFromString(s string, precision, scale int) (Decimal, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return Decimal{}, fmt.Errorf("invalid decimal literal %q", s)
	}
	scaled := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	num := new(big.Int).Mul(r.Num(), scaled)
	unscaled := new(big.Int).Quo(num, r.Denom())
	return Decimal{Unscaled: unscaled, Precision: precision, Scale: scale}, nil
}

// Equal compares unscaled value and scale; two Decimals with the same
// mathematical value but different scale are treated as distinct here,
// matching "strict type match" key semantics (scale is a type
// parameter, spec.md §3).
func (d Decimal) Equal(o Decimal) bool {
	return d.Scale == o.Scale && d.unscaledOrZero().Cmp(o.unscaledOrZero()) == 0
}

// Compare orders Decimals of the same scale by numeric order
// (spec.md §3). Differing-scale comparisons are normalized to the
// larger scale first.
func (d Decimal) Compare(o Decimal) int {
	a, b := d.unscaledOrZero(), o.unscaledOrZero()
	if d.Scale == o.Scale {
		return a.Cmp(b)
	}
	if d.Scale < o.Scale {
		factor := pow10(o.Scale - d.Scale)
		a = new(big.Int).Mul(a, factor)
	} else {
		factor := pow10(d.Scale - o.Scale)
		b = new(big.Int).Mul(b, factor)
	}
	return a.Cmp(b)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func (d Decimal) unscaledOrZero() *big.Int {
	if d.Unscaled == nil {
		return big.NewInt(0)
	}
	return d.Unscaled
}

func (d Decimal) bigMagnitudeBytes() []byte {
	var buf [decimalMagnitudeWidth]byte
	d.unscaledOrZero().FillBytes(buf[:])
	return buf[:]
}

// EncodeDecimal writes d's 16-byte on-disk representation into dst
// (len(dst) must be >= DecimalByteWidth).
func EncodeDecimal(dst []byte, d Decimal) error {
	mag := new(big.Int).Abs(d.unscaledOrZero())
	if mag.BitLen() > decimalMagnitudeWidth*8 {
		return fmt.Errorf("decimal magnitude overflows %d-byte representation", decimalMagnitudeWidth)
	}
	if d.unscaledOrZero().Sign() < 0 {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	mag.FillBytes(dst[1:DecimalByteWidth])
	return nil
}

// DecodeDecimal is EncodeDecimal's inverse. precision/scale come from
// the owning column's DataTypeInfo, since the encoding itself does not
// carry them.
func DecodeDecimal(src []byte, precision, scale int) Decimal {
	mag := new(big.Int).SetBytes(src[1:DecimalByteWidth])
	if src[0] == 1 {
		mag.Neg(mag)
	}
	return Decimal{Unscaled: mag, Precision: precision, Scale: scale}
}

// String renders d as a base-10 literal, e.g. "-123.450".
func (d Decimal) String() string {
	u := d.unscaledOrZero()
	neg := u.Sign() < 0
	mag := new(big.Int).Abs(u)
	s := mag.String()
	if d.Scale > 0 {
		for len(s) <= d.Scale {
			s = "0" + s
		}
		s = s[:len(s)-d.Scale] + "." + s[len(s)-d.Scale:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
