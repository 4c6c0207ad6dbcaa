package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestEncode_TextIsVerbatim(t *testing.T) {
	for _, s := range []string{"", "hello", "with \"quotes\"", "a;b=c", "ünïcödé", "{not json"} {
		got, err := Encode(types.Text(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestEncode_Structured(t *testing.T) {
	tests := []struct {
		name string
		v    types.Value
		want string
	}{
		{"integer", types.Number(42), "42"},
		{"fraction", types.Number(1.5), "1.5"},
		{"negative", types.Number(-3), "-3"},
		{"true", types.Bool(true), "true"},
		{"false", types.Bool(false), "false"},
		{"empty list", types.List(), "[]"},
		{"list", types.List(types.Number(1), types.Text("a"), types.Bool(false)), `[1,"a",false]`},
		{"map keys sorted", types.Map(map[string]types.Value{
			"b": types.Number(2),
			"a": types.Text("x"),
		}), `{"a":"x","b":2}`},
		{"nested", types.Map(map[string]types.Value{
			"items": types.List(types.Map(map[string]types.Value{"id": types.Number(7)})),
		}), `{"items":[{"id":7}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_KeepsMarkupCharacters(t *testing.T) {
	v := types.Map(map[string]types.Value{"html": types.List(types.Text("<b>a & b</b>"))})
	got, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, `{"html":["<b>a & b</b>"]}`, got)
	assert.True(t, Decode(got).Equal(v))
}

func TestEncode_Unencodable(t *testing.T) {
	tests := []struct {
		name string
		v    types.Value
	}{
		{"absent", types.Absent},
		{"NaN", types.Number(math.NaN())},
		{"infinity", types.Number(math.Inf(1))},
		{"nested absent", types.List(types.Number(1), types.Absent)},
		{"nested NaN", types.Map(map[string]types.Value{"x": types.Number(math.NaN())})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.v)
			assert.ErrorIs(t, err, types.ErrUnencodable)
		})
	}
}

func TestRoundTrip_Text(t *testing.T) {
	for _, s := range []string{"", "hello", "hello world", "{broken", "[1,", "nul", "a=b; c"} {
		enc, err := Encode(types.Text(s))
		require.NoError(t, err)
		got := Decode(enc)
		assert.True(t, types.Text(s).Equal(got), "round trip of %q gave %v", s, got)
	}
}

func TestRoundTrip_Structured(t *testing.T) {
	values := []types.Value{
		types.Number(0),
		types.Number(42),
		types.Number(-0.25),
		types.Number(1e21),
		types.Bool(true),
		types.Bool(false),
		types.List(),
		types.List(types.Text("x"), types.Number(2), types.List(types.Bool(true))),
		types.Map(map[string]types.Value{}),
		types.Map(map[string]types.Value{
			"theme": types.Text("dark"),
			"size":  types.Number(14),
			"tags":  types.List(types.Text("a"), types.Text("b")),
			"flags": types.Map(map[string]types.Value{"beta": types.Bool(true)}),
		}),
	}
	for _, v := range values {
		enc, err := Encode(v)
		require.NoError(t, err)
		got := Decode(enc)
		assert.True(t, v.Equal(got), "round trip of %v gave %v", v, got)
	}
}

func TestDecode_FallsBackToText(t *testing.T) {
	tests := []struct {
		raw  string
		want types.Value
	}{
		{"hello", types.Text("hello")},
		{"", types.Text("")},
		{"   ", types.Text("   ")},
		{"{\"a\":", types.Text("{\"a\":")},
		{"null", types.Text("null")},
		{"[1,null]", types.Text("[1,null]")},
		{`{"a":null}`, types.Text(`{"a":null}`)},
		{"42abc", types.Text("42abc")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Decode(tt.raw)
			assert.True(t, tt.want.Equal(got), "Decode(%q) = %v", tt.raw, got)
		})
	}
}

func TestDecode_TextThatLooksStructured(t *testing.T) {
	// Text values spelling JSON read back as the structured value.
	enc, err := Encode(types.Text("42"))
	require.NoError(t, err)
	assert.True(t, types.Number(42).Equal(Decode(enc)))

	enc, err = Encode(types.Text("true"))
	require.NoError(t, err)
	assert.True(t, types.Bool(true).Equal(Decode(enc)))

	assert.True(t, types.Text("hi").Equal(Decode(`"hi"`)))
}

func TestDecodeRaw(t *testing.T) {
	assert.True(t, DecodeRaw(types.RawAbsent).IsAbsent())
	assert.True(t, types.Text("").Equal(DecodeRaw(types.RawText(""))))
	assert.True(t, types.Text("null").Equal(DecodeRaw(types.RawText("null"))))
	assert.True(t, types.Number(7).Equal(DecodeRaw(types.RawText("7"))))
}
