package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in minor units (paise/cents). The backend sends decimal
// fields either as strings ("1299.00") or as numbers.
type Money int64

// ParseMoney parses a decimal string such as "1299.5"
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	// float64(math.MaxInt64) is 2^63, the first value that no longer fits
	minor := math.Round(f * 100)
	if math.Abs(minor) >= math.MaxInt64 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Money(minor), nil
}

// Percent returns rate (0.02 = 2%) of m, rounded to the nearest minor unit
func (m Money) Percent(rate float64) Money {
	return Money(math.Round(float64(m) * rate))
}

// String formats m with two decimals
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Display formats m for people
func (m Money) Display() string {
	return "₹" + m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*m = 0
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
	}

	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
