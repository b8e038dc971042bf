// Package core provides the domain model and money handling utilities.
//
// All monetary values are fixed-point decimals with two fractional digits.
// Arithmetic never goes through binary floating point: every operation that
// produces a new externally visible value is rounded to two decimals.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to a money value with
// proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. The result is always
// strictly positive. Returns ErrInvalidAmount for malformed input, explicit
// signs, or non-positive values.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35 (rounds up)
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, false)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSignedAmount is like ParseAmount but permits a leading minus sign and
// zero. Negative stored amounts mark inbound money on allocation and
// liquidation transactions; imports also need to round-trip them.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	return parseDecimal(s, true)
}

func parseDecimal(s string, allowSigned bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	if strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		if !allowSigned {
			return decimal.Zero, ErrInvalidAmount
		}
		neg = true
		s = s[1:]
		if s == "" {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if fracPart == "" {
		fracPart = "0"
	}

	d, err := decimal.NewFromString(intPart + "." + fracPart)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	// Half-up on the third decimal place
	d = d.Round(2)
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// Round2 normalizes a money value to two decimal places. Applied after every
// addition or subtraction so totals never accumulate sub-cent residue.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders the canonical two-decimal string used for storage and
// API payloads.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
