package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// maxAmountBits bounds parsed amounts to an unsigned 128-bit integer, the
// widest balance the custody ledger accounts in.
const maxAmountBits = 128

// ParseAmount converts a human-readable decimal amount string ("123",
// "123.45", "0.000001") into base units using the supplied decimal-place
// count. Excess fractional digits are truncated, never rounded: with six
// decimals "1.1234567" parses to the same base units as "1.123456". This is
// the single source of truth for decimal-amount semantics; fee and release
// computations only ever see its output.
func ParseAmount(amountStr string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(amountStr)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amountStr)
	}
	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}
	if !isDigits(integerPart) || !isDigits(fractionalPart) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amountStr)
	}

	d := int(decimals)
	switch {
	case len(fractionalPart) < d:
		fractionalPart += strings.Repeat("0", d-len(fractionalPart))
	case len(fractionalPart) > d:
		fractionalPart = fractionalPart[:d]
	}

	full := integerPart + fractionalPart
	full = strings.TrimLeft(full, "0")
	if full == "" {
		full = "0"
	}

	value, ok := new(big.Int).SetString(full, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amountStr)
	}
	if value.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: amount exceeds 128 bits", ErrInvalidAmount)
	}
	return value, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
