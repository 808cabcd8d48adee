package structured

// IsStringArray reports whether v decoded as a JSON array of strings.
func IsStringArray(v any) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

// IsArray reports whether v decoded as a JSON array.
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// IsObject reports whether v decoded as a JSON object.
func IsObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// HasKeys returns a validator requiring a JSON object with every key present.
func HasKeys(keys ...string) func(any) bool {
	return func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, k := range keys {
			if _, ok := obj[k]; !ok {
				return false
			}
		}
		return true
	}
}

// Len returns a validator requiring exactly n elements.
func Len[E any](n int) func([]E) bool {
	return func(v []E) bool {
		return len(v) == n
	}
}

// ForShape returns the structural validator for shape.
func ForShape(shape Shape) func(any) bool {
	if shape == ShapeArray {
		return IsArray
	}
	return IsObject
}
