package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Wallet and funding amounts are stored in int64 minor units (cents).
// Prices, quantities and P&L use shopspring decimals and cross into minor
// units only at the wallet boundary.

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseMinor reads a fixed-point decimal string ("12.34", "-0.05", ".99")
// into minor units. At most two fraction digits; no exponents, no grouping.
func ParseMinor(input string) (int64, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	if rest, found := strings.CutPrefix(raw, "-"); found {
		sign = -1
		raw = rest
	} else if rest, found := strings.CutPrefix(raw, "+"); found {
		raw = rest
	}
	wholePart, fracPart, _ := strings.Cut(raw, ".")
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > 2 {
		return 0, ErrTooManyDecimals
	}
	whole, err := parseDigits(wholePart)
	if err != nil {
		return 0, err
	}
	// Shifting into minor units must not wrap int64.
	if whole > (math.MaxInt64-99)/100 {
		return 0, ErrInvalidAmount
	}
	// Right-pad so "5" and "50" both mean fifty hundredths.
	frac := int64(0)
	if fracPart != "" {
		padded := (fracPart + "00")[:2]
		if frac, err = parseDigits(padded); err != nil {
			return 0, err
		}
	}
	return sign * (whole*100 + frac), nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// DecimalToMinor converts a decimal amount to minor units with banker's
// rounding, matching how settlement conversions round elsewhere in the ledger.
func DecimalToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).RoundBank(0).IntPart()
}

func MinorToDecimal(value int64) decimal.Decimal {
	return decimal.New(value, -2)
}

// parseDigits is strconv.ParseInt restricted to plain ASCII digits, so signs,
// spaces and separators inside the number are rejected.
func parseDigits(value string) (int64, error) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return parsed, nil
}
