package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) Decimal {
	return Decimal{decimal.RequireFromString(s)}
}

func TestRoundTrip(t *testing.T) {
	values := map[string]Value{
		"string":   String("Acme"),
		"empty":    String(""),
		"int":      Int(2),
		"neg":      Int(-48),
		"decimal":  dec("2.5"),
		"money":    dec("19.99"),
		"bool":     Bool(true),
		"false":    Bool(false),
		"null":     Null{},
		"list":     List{Int(1), String("a"), Bool(false)},
		"nil_list": List{},
		"map": Map{
			"chest_width": Map{"s": Int(48), "m": Int(51)},
			"sleeve":      Map{"s": dec("16.5")},
		},
	}

	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeLeaf(name, EncodeLeaf(v))
			require.NoError(t, err)
			assert.True(t, Equal(v, got), "want %#v, got %#v", v, got)
			assert.Equal(t, v.Kind(), got.Kind())
		})
	}
}

func TestDecode_NarrowsNumbers(t *testing.T) {
	item := Item{
		"whole":    N("2"),
		"frac":     N("2.5"),
		"trailing": N("2.0"),
		"huge":     N("123456789012345678901234567890"),
		"tiny":     N("0.1"),
		"expo":     N("1e3"),
	}

	m, err := Decode(item)
	require.NoError(t, err)

	assert.Equal(t, Int(2), m["whole"])
	assert.Equal(t, KindDecimal, m["frac"].Kind())
	assert.Equal(t, "2.5", m["frac"].(Decimal).String())
	assert.Equal(t, Int(2), m["trailing"])
	assert.Equal(t, KindDecimal, m["huge"].Kind())
	assert.Equal(t, "123456789012345678901234567890", m["huge"].(Decimal).String())
	assert.Equal(t, "0.1", m["tiny"].(Decimal).String())
	assert.Equal(t, Int(1000), m["expo"])
}

func TestEncode_BoolIsNotNumber(t *testing.T) {
	av := EncodeLeaf(Bool(true))
	assert.Equal(t, TagBOOL, av.Tag)
	assert.True(t, av.BOOL)

	v, err := FromGo(true)
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v)
}

func TestEncode_Nested(t *testing.T) {
	item := Encode(Map{
		"fit": Map{
			"rows": List{Map{"size": String("S"), "width": dec("48.5")}},
		},
	})

	fit := item["fit"]
	require.Equal(t, TagM, fit.Tag)
	rows := fit.M["rows"]
	require.Equal(t, TagL, rows.Tag)
	require.Len(t, rows.L, 1)
	assert.Equal(t, S("S"), rows.L[0].M["size"])
	assert.Equal(t, N("48.5"), rows.L[0].M["width"])
}

func TestDecode_UnsupportedTagReportsPath(t *testing.T) {
	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{
		"brand_name": {"S": "Acme"},
		"fabric": {"M": {"materials": {"L": [{"M": {"swatch": {"B": "AAE="}}}]}}}
	}`), &item))

	_, err := Decode(item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "fabric.materials[0].swatch", de.Path)
	assert.Equal(t, Tag("B"), de.Tag)
}

func TestDecode_BadNumber(t *testing.T) {
	_, err := Decode(Item{"qty": N("12abc")})

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "qty", de.Path)
	assert.Equal(t, TagN, de.Tag)
}

func TestDecode_NumberOutOfRange(t *testing.T) {
	_, err := Decode(Item{"fit": M(map[string]AttributeValue{"chest": N("1e10000000")})})

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "fit.chest", de.Path)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, ErrNumberOutOfRange)
}

func TestParseNumber_Limits(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"0", true},
		{"0e99999", true},
		{"-48.5", true},
		{"12345678901234567890123456789012345678", true},
		{"12345678901234567890123456789012345678000", true},
		{"123456789012345678901234567890123456789", false},
		{"1.23456789012345678901234567890123456789", false},
		{"9." + strings.Repeat("9", 37) + "e125", true},
		{"1e126", false},
		{"-1e126", false},
		{"1e-130", true},
		{"1e-131", false},
		{"1e10000000", false},
		{"1e-10000000", false},
		{"1" + strings.Repeat("0", 600), false},
	}
	for _, tt := range tests {
		_, err := ParseNumber(tt.in)
		if tt.ok {
			assert.NoError(t, err, "number %.40s", tt.in)
		} else {
			assert.ErrorIs(t, err, ErrNumberOutOfRange, "number %.40s", tt.in)
		}
	}
}

func TestDecode_AbsentTag(t *testing.T) {
	_, err := Decode(Item{"ghost": {}})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestAttributeValue_JSON(t *testing.T) {
	item := Item{
		"n":    N("16.5"),
		"s":    S("x"),
		"b":    BOOL(false),
		"null": NULL(),
		"l":    L(),
		"m":    M(map[string]AttributeValue{"k": N("1")}),
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var back Item
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item, back)
}

func TestAttributeValue_UnknownTagSurvivesJSON(t *testing.T) {
	var av AttributeValue
	require.NoError(t, json.Unmarshal([]byte(`{"SS": ["a", "b"]}`), &av))
	assert.Equal(t, Tag("SS"), av.Tag)

	data, err := json.Marshal(av)
	require.NoError(t, err)
	assert.JSONEq(t, `{"SS": ["a", "b"]}`, string(data))
}

func TestParseJSON(t *testing.T) {
	m, err := ParseJSON([]byte(`{"price": 19.99, "qty": 3, "ok": true, "note": null, "tags": ["a"]}`))
	require.NoError(t, err)

	assert.Equal(t, "19.99", m["price"].(Decimal).String())
	assert.Equal(t, Int(3), m["qty"])
	assert.Equal(t, Bool(true), m["ok"])
	assert.Equal(t, Null{}, m["note"])
	assert.Equal(t, List{String("a")}, m["tags"])
}

func TestParseJSON_Rejects(t *testing.T) {
	for _, body := range []string{``, `[]`, `"x"`, `{"a":`, `{"a":1} {"b":2}`} {
		_, err := ParseJSON([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, "body %q", body)
	}
}

func TestParseJSON_NumberOutOfRange(t *testing.T) {
	_, err := ParseJSON([]byte(`{"fit": {"chest": 1e10000000}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, ErrNumberOutOfRange)

	_, err = FromGo(decimal.New(1, 200))
	assert.ErrorIs(t, err, ErrNumberOutOfRange)
}

func TestToGo_PreservesDigits(t *testing.T) {
	out, err := json.Marshal(ToGo(Map{"w": dec("0.30000000000000000001"), "n": Int(7)}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"w": 0.30000000000000000001, "n": 7}`, string(out))
	assert.Contains(t, string(out), "0.30000000000000000001")
}

func TestRepeatedCyclesDoNotDrift(t *testing.T) {
	v := Value(dec("0.1"))
	for i := 0; i < 50; i++ {
		got, err := DecodeLeaf("x", EncodeLeaf(v))
		require.NoError(t, err)
		v = got
	}
	assert.Equal(t, "0.1", v.(Decimal).String())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(dec("2.50"), dec("2.5")))
	assert.True(t, Equal(Int(2), dec("2")))
	assert.False(t, Equal(Int(1), Bool(true)))
	assert.False(t, Equal(Map{"a": Int(1)}, Map{"b": Int(1)}))
	assert.False(t, Equal(List{Int(1)}, List{Int(1), Int(2)}))
}
