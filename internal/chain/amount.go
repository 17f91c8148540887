package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// maxDecimalPlaces bounds the scale accepted from the frame.
const maxDecimalPlaces = 36

// ScaleAmount converts a whole-unit amount received from the frame into base
// units. The frame sends JSON numbers, so exponent notation such as 1e-7 is
// accepted and expanded before the decimal parse.
func ScaleAmount(amount json.Number, decimalPlaces int) (*big.Int, error) {
	if decimalPlaces < 0 || decimalPlaces > maxDecimalPlaces {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{
			"decimalPlaces": fmt.Sprint(decimalPlaces),
		})
	}
	raw := strings.TrimSpace(amount.String())
	if strings.ContainsAny(raw, "eE") {
		f, ok := new(big.Float).SetPrec(256).SetString(raw)
		if !ok {
			return nil, linkerr.ErrInvalidAmount
		}
		raw = f.Text('f', decimalPlaces)
	}
	return ParseDecimalAmount(raw, decimalPlaces, linkerr.ErrInvalidAmount)
}

// ParseQuantity parses an optional base-unit integer such as a gas quote.
// Decimal and 0x-prefixed hex strings are accepted. Empty input returns nil.
func ParseQuantity(q json.Number) (*big.Int, error) {
	raw := strings.TrimSpace(q.String())
	if raw == "" {
		return nil, nil //nolint:nilnil // absent quantity
	}
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		_, ok = n.SetString(raw[2:], 16)
	} else {
		_, ok = n.SetString(raw, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{"quantity": raw})
	}
	return n, nil
}

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" {
		return nil, invalidAmountErr
	}

	// Check for negative amounts
	if strings.HasPrefix(amount, "-") {
		return nil, invalidAmountErr
	}

	// Split by decimal point
	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, invalidAmountErr
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}

	// Validate integer part
	if intPart == "" {
		intPart = "0"
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	// Scale integer part
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	// Handle decimal part
	if decPart != "" {
		// Validate decimal characters
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, invalidAmountErr
			}
		}

		// Pad or truncate decimal part
		for len(decPart) < decimalPlaces {
			decPart += "0"
		}
		decPart = decPart[:decimalPlaces]
		if decPart == "" {
			return result, nil
		}

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, invalidAmountErr
		}

		result = result.Add(result, decVal)
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}

	str := amount.String()

	// Pad with leading zeros if necessary
	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	// Insert decimal point
	decimalPos := len(str) - decimalPlaces

	// Trim trailing zeros after decimal point
	result := str[:decimalPos] + "." + str[decimalPos:]

	// Remove unnecessary trailing zeros
	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	return result
}
