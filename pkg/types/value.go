package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

// Value kinds. KindAbsent is the zero value.
const (
	KindAbsent ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindList
	KindMap
)

var kindNames = map[ValueKind]string{
	KindAbsent: "absent",
	KindText:   "text",
	KindNumber: "number",
	KindBool:   "bool",
	KindList:   "list",
	KindMap:    "map",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ErrUnsupportedValue is returned by ValueOf for Go values that have no
// Value representation.
var ErrUnsupportedValue = errors.New("unsupported value type")

// Value is a caller-visible typed value: text, number, boolean, ordered list,
// keyed map, or absent. The zero Value is Absent.
type Value struct {
	kind ValueKind
	text string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// Absent is the value reported for keys the backend holds nothing for.
var Absent = Value{}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a number value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns an ordered list value. A nil list is treated as empty.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value{}, items...)}
}

// Map returns a keyed map value. The map is copied.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	maps.Copy(cp, m)
	return Value{kind: KindMap, m: cp}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v is Absent.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsText returns the text held by v.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsList returns a copy of the items held by v.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsMap returns a copy of the entries held by v.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return maps.Clone(v.m), true
}

// Equal reports structural equality. Lists compare in order; maps compare
// by key set and per-key values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		return slices.EqualFunc(v.list, o.list, Value.Equal)
	case KindMap:
		return maps.EqualFunc(v.m, o.m, Value.Equal)
	}
	return false
}

// Any converts v to plain Go data: string, float64, bool, []any,
// map[string]any, or nil for Absent.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	}
	return nil
}

// String renders v for display. Text is shown verbatim; structured values
// are rendered as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindText:
		return v.text
	}
	data, err := json.Marshal(v.Any())
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(data)
}

// ValueOf converts plain Go data to a Value. Strings, booleans, integer and
// float types, json.Number, slices of any, string-keyed maps of any, and
// Values are accepted; nil converts to Absent at the top level only.
func ValueOf(x any) (Value, error) {
	if x == nil {
		return Absent, nil
	}
	return valueOf(x)
}

func valueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Absent, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Number(f), nil
	case []Value:
		return List(t...), nil
	case map[string]Value:
		return Map(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			if item == nil {
				return Absent, fmt.Errorf("%w: nil list item at %d", ErrUnsupportedValue, i)
			}
			iv, err := valueOf(item)
			if err != nil {
				return Absent, err
			}
			items[i] = iv
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		entries := make(map[string]Value, len(t))
		for k, item := range t {
			if item == nil {
				return Absent, fmt.Errorf("%w: nil map entry %q", ErrUnsupportedValue, k)
			}
			iv, err := valueOf(item)
			if err != nil {
				return Absent, err
			}
			entries[k] = iv
		}
		return Value{kind: KindMap, m: entries}, nil
	}
	return Absent, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
}

// Raw is the text a backend stores for a key, or absence. Absence is never
// the same as the empty string or the text "null".
type Raw struct {
	Text    string
	Present bool
}

// RawAbsent is the raw value of a key the backend holds nothing for.
var RawAbsent = Raw{}

// RawText returns a present raw value.
func RawText(s string) Raw { return Raw{Text: s, Present: true} }

// Equal compares presence and, when both are present, the exact bytes.
func (r Raw) Equal(o Raw) bool {
	if r.Present != o.Present {
		return false
	}
	return !r.Present || r.Text == o.Text
}

func (r Raw) String() string {
	if !r.Present {
		return "<absent>"
	}
	return r.Text
}
