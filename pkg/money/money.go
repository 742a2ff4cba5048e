// Package money holds fixed-point currency amounts as integer minor units.
// Decimal strings cross the API boundary; arithmetic on balances is plain
// integer math so no floating point ever touches a ledger value.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorDigits is the number of decimal places of the currency's minor unit.
const minorDigits = 2

// Amount is a currency value in minor units (e.g. cents).
type Amount int64

// Parse converts a decimal string such as "320.00" into an Amount.
// Digits beyond the minor unit are truncated, never rounded.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// FromDecimal truncates d to the minor unit and returns it as an Amount.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Truncate(minorDigits).Shift(minorDigits).IntPart())
}

// Decimal returns the amount as a decimal value in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorDigits)
}

// String formats the amount with the full minor-unit precision, e.g. "180.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(minorDigits)
}

// MarshalJSON renders the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
