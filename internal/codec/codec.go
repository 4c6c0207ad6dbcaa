// Package codec converts between typed values and the text that storage
// backends hold.
//
// Text values are stored verbatim. Every other kind is stored as JSON. On
// read the text is parsed as JSON first and taken literally when that fails,
// so plain strings written by code outside shelf survive unchanged. The
// price is that a text value which happens to be valid JSON (for example
// "42" or "true") reads back as the structured value it spells.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Encode returns the stored text for v. Absent values and non-finite numbers
// have no encoding and return types.ErrUnencodable.
func Encode(v types.Value) (string, error) {
	switch v.Kind() {
	case types.KindAbsent:
		return "", fmt.Errorf("%w: absent", types.ErrUnencodable)
	case types.KindText:
		s, _ := v.AsText()
		return s, nil
	}
	if err := checkEncodable(v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Any()); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrUnencodable, err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// checkEncodable rejects nested absent values and NaN or infinite numbers,
// which JSON cannot carry.
func checkEncodable(v types.Value) error {
	switch v.Kind() {
	case types.KindAbsent:
		return fmt.Errorf("%w: nested absent value", types.ErrUnencodable)
	case types.KindNumber:
		f, _ := v.AsNumber()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", types.ErrUnencodable, f)
		}
	case types.KindList:
		items, _ := v.AsList()
		for _, item := range items {
			if err := checkEncodable(item); err != nil {
				return err
			}
		}
	case types.KindMap:
		entries, _ := v.AsMap()
		for _, item := range entries {
			if err := checkEncodable(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode returns the typed value for stored text. It never fails: text that
// is not JSON, or JSON containing null anywhere, decodes as text.
func Decode(text string) types.Value {
	if v, ok := decodeStructured(text); ok {
		return v
	}
	return types.Text(text)
}

// DecodeRaw decodes a raw backend value, mapping absence to types.Absent.
func DecodeRaw(raw types.Raw) types.Value {
	if !raw.Present {
		return types.Absent
	}
	return Decode(raw.Text)
}

func decodeStructured(text string) (types.Value, bool) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return types.Absent, false
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return types.Absent, false
	}
	if parsed == nil {
		return types.Absent, false
	}
	// ValueOf rejects nested nulls, which have no typed representation.
	v, err := types.ValueOf(parsed)
	if err != nil {
		return types.Absent, false
	}
	return v, true
}
