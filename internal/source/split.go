package source

import "strings"

// SplitList splits a comma-joined association column into trimmed,
// non-empty, de-duplicated tokens, keeping first-seen order.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// SplitPairs parses comma-joined key=value settings. Tokens without "=" or
// with an empty key are dropped; a repeated key keeps its last value.
func SplitPairs(s string) map[string]string {
	out := make(map[string]string)
	for _, tok := range SplitList(s) {
		k, v, ok := strings.Cut(tok, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// parseBool reads the loosely typed "exposed" column ('t', 'true', '1', ...).
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes", "on":
		return true
	}
	return false
}
