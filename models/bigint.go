package models

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt wraps math/big.Int with JSON marshaling as a quoted decimal string.
// Block numbers and wei amounts exceed the safe integer range of JSON
// numbers, so they travel as strings.
type BigInt struct {
	big.Int
}

// NewBigInt creates a BigInt from an int64.
func NewBigInt(v int64) *BigInt {
	b := new(BigInt)
	b.SetInt64(v)
	return b
}

// ParseBigInt creates a BigInt from a decimal string.
func ParseBigInt(s string) (*BigInt, error) {
	b := new(BigInt)
	if _, ok := b.SetString(s, 10); !ok {
		return nil, fmt.Errorf("invalid decimal integer %q", s)
	}
	return b, nil
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid decimal integer %q", s)
	}
	return nil
}

// Clone returns an independent copy.
func (b *BigInt) Clone() *BigInt {
	if b == nil {
		return nil
	}
	c := new(BigInt)
	c.Set(&b.Int)
	return c
}

// Cmp compares b and other, returning -1, 0 or 1.
func (b *BigInt) Cmp(other *BigInt) int {
	return b.Int.Cmp(&other.Int)
}
