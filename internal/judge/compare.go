package judge

import "strings"

// CompareOutputs reports whether actual matches expected once line endings are
// normalised to LF, trailing spaces and tabs are trimmed from every line and
// trailing newlines are dropped.
func CompareOutputs(actual, expected string) bool {
	return normalize(actual) == normalize(expected)
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
