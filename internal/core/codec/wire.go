package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tag names the variant carried by an AttributeValue on the wire.
type Tag string

const (
	TagS    Tag = "S"
	TagN    Tag = "N"
	TagBOOL Tag = "BOOL"
	TagNULL Tag = "NULL"
	TagL    Tag = "L"
	TagM    Tag = "M"
)

// AttributeValue is the store's tagged union. Exactly one payload field is
// meaningful, selected by Tag. N holds the number as a decimal string.
//
// Tags outside the supported set are preserved as read so that Decode can
// report them instead of dropping the attribute.
type AttributeValue struct {
	Tag  Tag
	S    string
	N    string
	BOOL bool
	L    []AttributeValue
	M    map[string]AttributeValue

	raw json.RawMessage
}

// Item is one stored record: top-level attribute name to wire value.
type Item map[string]AttributeValue

func S(s string) AttributeValue  { return AttributeValue{Tag: TagS, S: s} }
func N(n string) AttributeValue  { return AttributeValue{Tag: TagN, N: n} }
func BOOL(b bool) AttributeValue { return AttributeValue{Tag: TagBOOL, BOOL: b} }
func NULL() AttributeValue       { return AttributeValue{Tag: TagNULL} }

func L(vs ...AttributeValue) AttributeValue {
	if vs == nil {
		vs = []AttributeValue{}
	}
	return AttributeValue{Tag: TagL, L: vs}
}

func M(m map[string]AttributeValue) AttributeValue {
	if m == nil {
		m = map[string]AttributeValue{}
	}
	return AttributeValue{Tag: TagM, M: m}
}

// StringAttr returns the S payload of the named attribute, or "" when the
// attribute is absent or not a string.
func (it Item) StringAttr(name string) string {
	av, ok := it[name]
	if !ok || av.Tag != TagS {
		return ""
	}
	return av.S
}

// Clone returns a copy of the item whose top-level map can be mutated freely.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the single-key object form, e.g. {"N":"2.5"}.
func (av AttributeValue) MarshalJSON() ([]byte, error) {
	switch av.Tag {
	case TagS:
		return json.Marshal(map[string]string{"S": av.S})
	case TagN:
		return json.Marshal(map[string]string{"N": av.N})
	case TagBOOL:
		return json.Marshal(map[string]bool{"BOOL": av.BOOL})
	case TagNULL:
		return []byte(`{"NULL":true}`), nil
	case TagL:
		l := av.L
		if l == nil {
			l = []AttributeValue{}
		}
		return json.Marshal(map[string][]AttributeValue{"L": l})
	case TagM:
		m := av.M
		if m == nil {
			m = map[string]AttributeValue{}
		}
		return json.Marshal(map[string]map[string]AttributeValue{"M": m})
	default:
		if av.Tag == "" {
			return nil, fmt.Errorf("marshal attribute value: empty tag")
		}
		raw := av.raw
		if raw == nil {
			raw = json.RawMessage("null")
		}
		return json.Marshal(map[string]json.RawMessage{string(av.Tag): raw})
	}
}

func (av *AttributeValue) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal attribute value: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("unmarshal attribute value: want exactly one tag, got %d", len(obj))
	}

	*av = AttributeValue{}
	for tag, payload := range obj {
		av.Tag = Tag(tag)
		switch av.Tag {
		case TagS:
			return json.Unmarshal(payload, &av.S)
		case TagN:
			return json.Unmarshal(payload, &av.N)
		case TagBOOL:
			return json.Unmarshal(payload, &av.BOOL)
		case TagNULL:
			return nil
		case TagL:
			av.L = []AttributeValue{}
			return json.Unmarshal(payload, &av.L)
		case TagM:
			av.M = map[string]AttributeValue{}
			return json.Unmarshal(payload, &av.M)
		default:
			av.raw = append(json.RawMessage(nil), bytes.TrimSpace(payload)...)
		}
	}
	return nil
}
