package store

// Clone deep-copies plain structured data. Values of type State,
// map[string]any and []any are copied recursively, field by field; every
// other value is returned unchanged. Cloning is identity for primitives,
// and values the engine cannot safely decompose (struct values such as
// time.Time, pointers, functions, channels) are treated as opaque and
// returned by reference.
//
// Circular references are not guarded against: cloning a cyclic structure
// recurses until the stack overflows. Cyclic input is not supported.
func Clone(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case State:
		return cloneState(val)
	case map[string]any:
		return map[string]any(cloneState(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

func cloneState(src State) State {
	dst := make(State, len(src))
	for k, v := range src {
		dst[k] = Clone(v)
	}
	return dst
}

// CloneInto deep-copies the properties of src into dst, skipping any
// property dst already defines. It merges into a partially pre-built
// destination without overwriting fields that are already set.
func CloneInto(dst, src State) {
	for k, v := range src {
		if _, ok := dst[k]; ok {
			continue
		}
		dst[k] = Clone(v)
	}
}
