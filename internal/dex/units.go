package dex

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a human decimal string into raw token units.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	if strings.ContainsAny(amount, "eE/") {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if len(frac) > int(decimals) {
		trimmed := strings.TrimRight(frac[decimals:], "0")
		if trimmed != "" {
			return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
		}
	}

	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return new(big.Int).Set(rat.Num()), nil
}

// FormatUnits renders raw token units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if sign < 0 {
		return "-" + text
	}
	return text
}

// ToFloat converts raw units to a float64 for display and USD math only.
func ToFloat(value *big.Int, decimals uint8) float64 {
	if value == nil {
		return 0
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f, _ := new(big.Rat).SetFrac(value, denom).Float64()
	return f
}
