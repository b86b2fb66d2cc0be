// Package codec converts between native attribute values and the store's
// tagged wire representation. Numbers travel as decimal strings in both
// directions and are never routed through float64.
package codec

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrDecode marks wire data that cannot be mapped to a native value.
var ErrDecode = errors.New("decode attribute value")

// DecodeError reports the attribute path of a value that could not be decoded.
type DecodeError struct {
	Path string
	Tag  Tag
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: tag %q: %v", e.Path, e.Tag, e.Err)
	}
	return fmt.Sprintf("decode %s: unsupported tag %q", e.Path, e.Tag)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode maps a stored item to a native map.
func Decode(item Item) (Map, error) {
	out := make(Map, len(item))
	for name, av := range item {
		v, err := decodeAt(name, av)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// DecodeLeaf maps a single wire value. path is used only for error reports.
func DecodeLeaf(path string, av AttributeValue) (Value, error) {
	return decodeAt(path, av)
}

func decodeAt(path string, av AttributeValue) (Value, error) {
	switch av.Tag {
	case TagS:
		return String(av.S), nil
	case TagN:
		v, err := ParseNumber(av.N)
		if err != nil {
			return nil, &DecodeError{Path: path, Tag: av.Tag, Err: err}
		}
		return v, nil
	case TagBOOL:
		return Bool(av.BOOL), nil
	case TagNULL:
		return Null{}, nil
	case TagL:
		out := make(List, len(av.L))
		for i, e := range av.L {
			v, err := decodeAt(path+"["+strconv.Itoa(i)+"]", e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case TagM:
		out := make(Map, len(av.M))
		for k, e := range av.M {
			v, err := decodeAt(path+"."+k, e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, &DecodeError{Path: path, Tag: av.Tag}
	}
}

// Encode maps a native map to a storable item.
func Encode(m Map) Item {
	out := make(Item, len(m))
	for name, v := range m {
		out[name] = EncodeLeaf(v)
	}
	return out
}

// EncodeLeaf maps one native value, recursing into lists and maps. A nil
// Value encodes as NULL.
func EncodeLeaf(v Value) AttributeValue {
	switch t := v.(type) {
	case nil, Null:
		return NULL()
	case String:
		return S(string(t))
	case Bool:
		return BOOL(bool(t))
	case Int:
		return N(strconv.FormatInt(int64(t), 10))
	case Decimal:
		return N(t.String())
	case List:
		out := make([]AttributeValue, len(t))
		for i, e := range t {
			out[i] = EncodeLeaf(e)
		}
		return L(out...)
	case Map:
		out := make(map[string]AttributeValue, len(t))
		for k, e := range t {
			out[k] = EncodeLeaf(e)
		}
		return M(out)
	default:
		panic(fmt.Sprintf("codec: unknown value type %T", v))
	}
}
