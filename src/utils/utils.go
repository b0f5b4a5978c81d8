package utils

import "strings"

func StringIsEmptyOrWhitespace(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// SplitList separa una lista por comas descartando los elementos vacíos.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if StringIsEmptyOrWhitespace(p) {
			continue
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
