package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrMalformedPayload is returned when a request body is not a JSON object.
var ErrMalformedPayload = errors.New("payload is not a JSON object")

// ParseJSON decodes a JSON object into a native map. Numbers are read as
// their literal text and converted to exact decimals.
func ParseJSON(data []byte) (Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrMalformedPayload
	}

	v, err := FromGo(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return v.(Map), nil
}

// FromGo converts plain Go data (as produced by encoding/json with UseNumber)
// into a Value. bool is matched before any numeric case so it keeps its tag.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		v, err := ParseNumber(t.String())
		if err != nil {
			return nil, fmt.Errorf("number: %w", err)
		}
		return v, nil
	case int:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case float64:
		// Shortest decimal form that reads back as the same float.
		return ParseNumber(strconv.FormatFloat(t, 'f', -1, 64))
	case decimal.Decimal:
		if err := CheckNumber(t); err != nil {
			return nil, err
		}
		return NewNumber(t), nil
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(t))
		for k, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", x)
	}
}

// ToGo converts a Value into data that encoding/json serialises faithfully.
// Decimals become json.Number so their digits survive marshalling.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(t)
	case Bool:
		return bool(t)
	case Int:
		return int64(t)
	case Decimal:
		return json.Number(t.String())
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToGo(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = ToGo(e)
		}
		return out
	default:
		return nil
	}
}
