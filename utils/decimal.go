package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseFlexDecimal accepts common user-formatted amounts like:
// - "20000"
// - "20,000"
// - "$ 20,000"
// - "USD -20,000"
//
// Keep digits, '.', and a leading '-' only.
func ParseFlexDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "USD", "")
		s = strings.ReplaceAll(s, "usd", "")
		s = strings.ReplaceAll(s, "$", "")
		s = strings.TrimSpace(s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	// Strip everything except digits and '.'.
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.NewFromInt(0), fmt.Errorf("invalid value")
	}
	if neg {
		clean = "-" + clean
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.NewFromInt(0), err
	}
	return val, nil
}

// FlexDecimal is a JSON amount field that tolerates both numbers and
// formatted strings. A garbage value does not fail the whole payload's
// unmarshal; it is recorded so record-level validation can report it by
// position instead (batch imports are partial-failure, never fail-fast).
type FlexDecimal struct {
	Value   decimal.Decimal
	Present bool
	Valid   bool
	Raw     string
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	d.Present = true
	d.Raw = trimmed

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		d.Raw = s
		val, err := ParseFlexDecimal(s)
		if err != nil {
			return nil
		}
		d.Value = val
		d.Valid = true
		return nil
	}

	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil
	}
	d.Value = val
	d.Valid = true
	return nil
}

func (d FlexDecimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Value.String() + `"`), nil
}

// Decimal returns the parsed value, or zero when the field was absent.
func (d FlexDecimal) Decimal() decimal.Decimal {
	if !d.Present || !d.Valid {
		return decimal.Zero
	}
	return d.Value
}
