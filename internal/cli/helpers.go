package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mesh-intelligence/shelf/internal/codec"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// parseLiteral converts a command-line value. Unless asText is set, the
// value is read the way stored text is decoded: structured JSON when it
// parses, plain text otherwise.
func parseLiteral(s string, asText bool) types.Value {
	if asText {
		return types.Text(s)
	}
	return codec.Decode(s)
}

// structuredJSON renders a list or map value as JSON for path queries.
func structuredJSON(v types.Value) (string, error) {
	switch v.Kind() {
	case types.KindList, types.KindMap:
		return codec.Encode(v)
	case types.KindAbsent:
		return "{}", nil
	}
	return "", fmt.Errorf("value is %s, not a list or map", v.Kind())
}

// lookupPath returns the element of v addressed by a gjson path.
func lookupPath(v types.Value, path string) (types.Value, bool, error) {
	doc, err := structuredJSON(v)
	if err != nil {
		return types.Absent, false, err
	}
	res := gjson.Get(doc, path)
	if !res.Exists() {
		return types.Absent, false, nil
	}
	if res.Type == gjson.String {
		return types.Text(res.String()), true, nil
	}
	return codec.Decode(res.Raw), true, nil
}

// updatePath sets the element of v addressed by an sjson path to elem and
// returns the updated document.
func updatePath(v types.Value, path string, elem types.Value) (types.Value, error) {
	doc, err := structuredJSON(v)
	if err != nil {
		return types.Absent, err
	}
	var updated string
	if elem.IsAbsent() {
		updated, err = sjson.Delete(doc, path)
	} else {
		updated, err = sjson.Set(doc, path, elem.Any())
	}
	if err != nil {
		return types.Absent, fmt.Errorf("update %q: %w", path, err)
	}
	return codec.Decode(updated), nil
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
