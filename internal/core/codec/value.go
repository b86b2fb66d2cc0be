package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindDecimal
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the closed set of native values a specification attribute can hold.
// The variants are Null, String, Int, Decimal, Bool, List and Map.
type Value interface {
	Kind() Kind
}

type Null struct{}

type String string

// Int is a whole number that fits in 64 bits.
type Int int64

// Decimal is an exact number with a fractional part, or a whole number too
// large for Int.
type Decimal struct {
	decimal.Decimal
}

type Bool bool

type List []Value

type Map map[string]Value

func (Null) Kind() Kind    { return KindNull }
func (String) Kind() Kind  { return KindString }
func (Int) Kind() Kind     { return KindInt }
func (Decimal) Kind() Kind { return KindDecimal }
func (Bool) Kind() Kind    { return KindBool }
func (List) Kind() Kind    { return KindList }
func (Map) Kind() Kind     { return KindMap }

// ErrNumberOutOfRange reports a number the store cannot hold exactly.
var ErrNumberOutOfRange = errors.New("number out of range")

// Numbers carry at most 38 significant digits with a magnitude between
// 1e-130 and 1e126, matching the DynamoDB N type.
const (
	maxSignificantDigits = 38
	minExponent          = -130
	maxExponent          = 125
	maxNumberText        = 512
)

// NewNumber narrows an exact decimal to Int when it has no fractional part
// and fits in an int64, and to Decimal otherwise.
func NewNumber(d decimal.Decimal) Value {
	if d.IsZero() {
		return Int(0)
	}
	if d.IsInteger() {
		if bi := d.BigInt(); bi.IsInt64() {
			return Int(bi.Int64())
		}
	}
	return Decimal{d}
}

// ParseNumber parses a decimal string without going through a binary float.
// Numbers outside the storable range fail with ErrNumberOutOfRange.
func ParseNumber(s string) (Value, error) {
	if len(s) > maxNumberText {
		return nil, fmt.Errorf("%w: %d characters", ErrNumberOutOfRange, len(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if err := CheckNumber(d); err != nil {
		return nil, err
	}
	return NewNumber(d), nil
}

// CheckNumber reports whether d fits the storable precision and magnitude.
// It reads only the coefficient digits, so a huge exponent costs nothing.
func CheckNumber(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	digits := strings.TrimLeft(d.Coefficient().String(), "-")
	trimmed := strings.TrimRight(digits, "0")
	exp := int64(d.Exponent()) + int64(len(digits)-len(trimmed))
	if len(trimmed) > maxSignificantDigits {
		return fmt.Errorf("%w: %d significant digits", ErrNumberOutOfRange, len(trimmed))
	}
	if mag := exp + int64(len(trimmed)) - 1; mag < minExponent || mag > maxExponent {
		return fmt.Errorf("%w: magnitude 1e%d", ErrNumberOutOfRange, mag)
	}
	return nil
}

// Float64 returns the nearest float64. Callers that need the exact figure
// should use the embedded decimal.
func (d Decimal) Float64() float64 {
	f, _ := d.Decimal.Float64()
	return f
}

// Keys returns the map keys in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the string stored under key, or "" when absent or not a string.
func (m Map) GetString(key string) string {
	if s, ok := m[key].(String); ok {
		return string(s)
	}
	return ""
}

// GetMap returns the nested map stored under key, or nil.
func (m Map) GetMap(key string) Map {
	if nested, ok := m[key].(Map); ok {
		return nested
	}
	return nil
}

// Clone deep-copies the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	return clone(m).(Map)
}

func clone(v Value) Value {
	switch t := v.(type) {
	case List:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	case Map:
		out := make(Map, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two values are the same. Numbers compare by value,
// so Decimal 2.50 equals Decimal 2.5.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Decimal:
			return y.Equal(decimal.NewFromInt(int64(x)))
		}
		return false
	case Decimal:
		switch y := b.(type) {
		case Decimal:
			return x.Equal(y.Decimal)
		case Int:
			return x.Equal(decimal.NewFromInt(int64(y)))
		}
		return false
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}
