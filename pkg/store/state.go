package store

// State is a store's property bag: a mapping from property name to an
// arbitrary structured value. Component state and update patches use the
// same shape.
type State map[string]any

// merge copies every property of patch into dst, overwriting existing keys.
func merge(dst, src State) {
	for k, v := range src {
		dst[k] = v
	}
}

// pick returns the subset of src whose keys appear in keys.
// Returns nil when no key matches.
func pick(src State, keys []string) State {
	var out State
	for _, k := range keys {
		if v, ok := src[k]; ok {
			if out == nil {
				out = make(State, len(keys))
			}
			out[k] = v
		}
	}
	return out
}
