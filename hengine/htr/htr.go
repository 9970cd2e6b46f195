// Package htr provides types for Hathor token amounts.
//
// Amounts on the Hathor network are integers with two decimal
// places; the smallest indivisible unit is one centi.
package htr

import (
	"strconv"
	"strings"

	"github.com/ebourg/hathor-wallet/errors"
)

// Amount represents a quantity of a Hathor token in centis.
// It can be negative, for example to express a balance delta
// produced by an outgoing transaction.
type Amount int64

// Useful constants, in centis.
const (
	Centi Amount = 1
	One          = 100 * Centi
)

// ErrAmountFormat is returned by Parse for malformed input.
var ErrAmountFormat = errors.New("bad amount syntax")

// String formats a as a decimal number of whole tokens,
// e.g. Amount(150).String() == "1.50".
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return sign + strconv.FormatInt(int64(a/One), 10) + "." + pad(int64(a%One))
}

func pad(c int64) string {
	if c < 10 {
		return "0" + strconv.FormatInt(c, 10)
	}
	return strconv.FormatInt(c, 10)
}

// Parse converts a decimal token string such as "1.50" or "-3"
// to an Amount. The input must contain digits only, apart from an
// optional leading minus sign and at most one decimal point.
func Parse(s string) (Amount, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, errors.Wrap(ErrAmountFormat, "empty amount")
	}
	if !digits(whole) || !digits(frac) {
		return 0, errors.Wrap(ErrAmountFormat, "not a decimal number")
	}
	if len(frac) > 2 {
		return 0, errors.Wrap(ErrAmountFormat, "more than two decimal places")
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errors.Sub(ErrAmountFormat, err)
	}
	var c int64
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		c, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, errors.Sub(ErrAmountFormat, err)
		}
	}
	a := Amount(w)*One + Amount(c)
	if neg {
		a = -a
	}
	return a, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
