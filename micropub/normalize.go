package micropub

// normalizeProperties coerces every property value into an array; the
// Micropub wire format is list-valued even for semantically singular
// properties.
func normalizeProperties(properties map[string]any) map[string][]any {
	normalized := make(map[string][]any, len(properties))
	for name, value := range properties {
		normalized[name] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// normalizeDelete handles the two delete shapes: a list of property names to
// remove wholesale, or a map of per-value removals (array-normalized).
func normalizeDelete(del any) any {
	switch v := del.(type) {
	case []string:
		return v
	case []any:
		return v
	case map[string]any:
		return normalizeProperties(v)
	default:
		return v
	}
}
