// Package structured extracts a JSON payload from free-form model output.
//
// Object payloads are taken from the first '{' to the last '}' in the text. This
// greedy span mis-extracts when surrounding prose itself contains braces; callers
// expecting brace-heavy prose should ask the model for a bare payload instead.
package structured

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"modelgate/internal/core"
)

// Shape is the top-level JSON kind a caller expects.
type Shape string

const (
	ShapeArray  Shape = "array"
	ShapeObject Shape = "object"
)

// ParseShape converts a request value to a Shape.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeArray:
		return ShapeArray, nil
	case ShapeObject, "":
		return ShapeObject, nil
	default:
		return "", fmt.Errorf("unknown shape %q (valid: array, object)", s)
	}
}

var (
	openFence  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	closeFence = regexp.MustCompile("\r?\n?```$")
)

// StripFences removes a leading and trailing triple-backtick fence if present.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse extracts a value of type T from raw and checks it with validate (which may be nil).
// Every failure is a malformed_output_error; partial data is never returned.
func Parse[T any](raw string, shape Shape, validate func(T) bool) (T, error) {
	var zero T
	cleaned := StripFences(raw)

	var (
		value T
		err   error
	)
	switch shape {
	case ShapeArray:
		value, err = decode[T](cleaned)
	default:
		value, err = parseObject[T](cleaned)
	}
	if err != nil {
		return zero, err
	}

	if validate != nil && !validate(value) {
		return zero, core.NewMalformedOutputError("model output did not match the expected shape", nil)
	}
	return value, nil
}

func parseObject[T any](text string) (T, error) {
	var zero T

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return zero, core.NewMalformedOutputError("no JSON object found in model output", nil)
	}
	span := text[start : end+1]

	value, err := decode[T](span)
	if err == nil {
		return value, nil
	}

	repaired := dropTrailingCommas(span)
	if repaired == span {
		return zero, err
	}
	return decode[T](repaired)
}

// dropTrailingCommas removes commas that directly precede a closing '}' or ']'.
// Commas inside string literals are left alone.
func dropTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ',':
			j := i + 1
			for j < len(text) && strings.IndexByte(" \t\r\n", text[j]) >= 0 {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func decode[T any](text string) (T, error) {
	var value T
	if !gjson.Valid(text) {
		return value, core.NewMalformedOutputError("model output is not valid JSON", nil)
	}
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return value, core.NewMalformedOutputError("model output has an unexpected structure: "+err.Error(), err)
	}
	return value, nil
}
