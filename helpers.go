package destino

import (
	"strings"
	"time"
)

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitTags parses a "beach, family" form field.
func splitTags(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}

func today() string {
	return time.Now().Format("2006-01-02")
}
