package vector

// MatchMetadata builds a Filter from a map of required values. Every entry must
// match for a chunk to pass. For the "categories" key, a string filter value
// matches when it appears in the chunk's category list; all other keys require
// equality on the stored value.
func MatchMetadata(filters map[string]interface{}) Filter {
	if len(filters) == 0 {
		return nil
	}
	return func(meta map[string]interface{}) bool {
		for key, want := range filters {
			got, ok := meta[key]
			if !ok {
				return false
			}
			if key == "categories" {
				if !containsValue(got, want) {
					return false
				}
				continue
			}
			if got != want {
				return false
			}
		}
		return true
	}
}

// containsValue reports whether want appears in list, which may be a []string
// or (after JSON round-tripping) a []interface{}.
func containsValue(list, want interface{}) bool {
	switch items := list.(type) {
	case []string:
		for _, v := range items {
			if v == want {
				return true
			}
		}
	case []interface{}:
		for _, v := range items {
			if v == want {
				return true
			}
		}
	case string:
		return items == want
	}
	return false
}
