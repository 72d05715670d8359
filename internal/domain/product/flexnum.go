package product

import (
	"bytes"
	"fmt"
	"strconv"
)

// Decimal is a float64 that unmarshals from either a JSON number or a
// numeric string.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(unquote(data))

	if s == "" || s == "null" {
		return fmt.Errorf("price: empty value")
	}

	f, err := strconv.ParseFloat(s, 64)

	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}

	*d = Decimal(f)
	return nil
}

func (d Decimal) Float64() float64 {
	return float64(d)
}

// Count is an int with the same lenient decoding as Decimal.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	s := string(unquote(data))

	if s == "" || s == "null" {
		return fmt.Errorf("quantity: empty value")
	}

	n, err := strconv.ParseInt(s, 10, 64)

	if err != nil {
		return fmt.Errorf("must be an integer")
	}

	*c = Count(n)
	return nil
}

func (c Count) Int() int {
	return int(c)
}

func unquote(data []byte) []byte {
	data = bytes.TrimSpace(data)

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return data[1 : len(data)-1]
	}

	return data
}
