package common

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	ETHDecimals  = 18 // ETH has 18 decimals (wei)
	GweiDecimals = 9  // gas prices are usually shown in gwei
)

// WeiToEther converts wei to an ETH string without float precision loss
func WeiToEther(wei *big.Int) string {
	return FormatUnits(wei, ETHDecimals)
}

// EtherToWei converts an ETH string to wei without float precision loss
func EtherToWei(eth string) (*big.Int, error) {
	return ParseUnits(eth, ETHDecimals)
}

// FormatUnits converts an integer amount to a decimal string by inserting the decimal point
// Example: FormatUnits(24981836, 9) = "0.024981836"
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		value = new(big.Int)
	}
	negative := value.Sign() < 0
	s := new(big.Int).Abs(value).String()

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	// Insert decimal point
	pos := len(s) - decimals
	out := s[:pos] + "." + s[pos:]
	if negative {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string to an integer amount by removing the decimal point
// Example: ParseUnits("0.024981836", 9) = 24981836
// Digits beyond the given precision are rejected rather than truncated.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}

	// Pad fractional part to exact decimals
	if len(frac) > decimals {
		return nil, fmt.Errorf("more than %d decimal places", decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || n.Sign() < 0 || strings.HasPrefix(whole, "+") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// ParseUint256 parses a non-negative integer written in decimal or 0x-prefixed hex.
func ParseUint256(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	if digits == "" || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return nil, fmt.Errorf("invalid integer %q", s)
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("integer %q overflows uint256", s)
	}
	return n, nil
}
