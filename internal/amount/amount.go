// Package amount implements the six-decimal fixed-point quantities used for
// injected fiat, locked custody and minted stablecoin.
package amount

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/mintflow/internal/common"
)

// Decimals is the number of fractional digits carried by an Amount.
const Decimals = 6

// Amount is a non-negative quantity in micro-units (1.000000 == 1_000_000).
type Amount int64

const (
	Zero  Amount = 0
	Scale Amount = 1_000_000
	// One is the unit ratio, used for a fully backed certificate.
	One = Scale
)

// Parse reads a decimal string with at most six fractional digits, e.g.
// "1000", "1000.5" or "0.000001".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", common.ErrValidation)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: signed amount %q", common.ErrValidation, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if (whole == "" && frac == "") || !digits(whole) || !digits(frac) {
		return 0, fmt.Errorf("%w: malformed amount %q", common.ErrValidation, s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return 0, fmt.Errorf("%w: amount %q has more than %d decimals", common.ErrValidation, s, Decimals)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", common.ErrValidation, s, err)
	}
	if w > math.MaxInt64/int64(Scale)-1 {
		return 0, fmt.Errorf("%w: amount %q out of range", common.ErrValidation, s)
	}

	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", Decimals-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: amount %q: bad fraction", common.ErrValidation, s)
		}
	}

	return Amount(w*int64(Scale) + f), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Micros() int64 { return int64(a) }

func (a Amount) IsPositive() bool { return a > 0 }

// String renders the amount with exactly six decimals.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/int64(Scale), v%int64(Scale))
}

// Add returns a+b, failing on int64 overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: amount overflow", common.ErrValidation)
	}
	return a + b, nil
}

// Ratio returns num/den as an Amount, e.g. Ratio(1000, 1000) == One.
func Ratio(num, den Amount) (Amount, error) {
	if den <= 0 {
		return 0, fmt.Errorf("%w: ratio with non-positive denominator", common.ErrValidation)
	}
	r := new(big.Int).Mul(big.NewInt(int64(num)), big.NewInt(int64(Scale)))
	r.Quo(r, big.NewInt(int64(den)))
	if !r.IsInt64() {
		return 0, fmt.Errorf("%w: ratio out of range", common.ErrValidation)
	}
	return Amount(r.Int64()), nil
}

// MarshalJSON encodes the amount as a decimal string so no precision is lost
// in JSON consumers that use float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
