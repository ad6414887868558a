package textutil

import "strings"

// NormalizeStringMap trims keys and values of environment-style maps, dropping entries with
// empty keys.
func NormalizeStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		result[trimmedKey] = strings.TrimSpace(value)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// SplitList splits a comma separated value, trimming entries and dropping empty ones.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SplitPair splits "key=value", trimming both halves. ok is false when no separator is present.
func SplitPair(entry string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(entry, "=")
	return strings.TrimSpace(key), strings.TrimSpace(value), ok
}
