package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/mezonai/ppy/errors"
)

// MaxDecimals bounds the precision a Graphene asset can carry.
const MaxDecimals = 18

// ToChainAmount converts a display decimal such as "1.5" into integer chain
// units, amount * 10^decimals. Fraction digits beyond decimals must be zero.
func ToChainAmount(amount string, decimals int) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, errors.MissingInput("amount")
	}
	if decimals < 0 || decimals > MaxDecimals {
		return 0, errors.NewError(errors.ErrCodeInvalidAmount, fmt.Sprintf("unsupported precision %d", decimals))
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return 0, errors.NewError(errors.ErrCodeInvalidAmount, fmt.Sprintf("invalid amount %q", amount))
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, errors.NewError(errors.ErrCodeInvalidAmount, fmt.Sprintf("invalid amount %q", amount))
	}
	if len(frac) > decimals {
		extra := frac[decimals:]
		if strings.Trim(extra, "0") != "" {
			return 0, errors.NewError(errors.ErrCodeInvalidAmount, fmt.Sprintf("amount %q exceeds %d decimals", amount, decimals))
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return 0, nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidAmount, err, fmt.Sprintf("invalid amount %q", amount))
	}
	if !v.IsUint64() || v.Uint64() > math.MaxInt64 {
		return 0, errors.NewError(errors.ErrCodeInvalidAmount, fmt.Sprintf("amount %q overflows chain units", amount))
	}
	return int64(v.Uint64()), nil
}

// FromChainAmount renders integer chain units with exactly decimals
// fraction digits.
func FromChainAmount(amount int64, decimals int) string {
	sign := ""
	abs := uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = uint64(-(amount + 1)) + 1
	}
	digits := uint256.NewInt(abs).Dec()
	if decimals <= 0 {
		return sign + digits
	}
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	cut := len(digits) - decimals
	return sign + digits[:cut] + "." + digits[cut:]
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
