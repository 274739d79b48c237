package heuristic

import (
	"regexp"
	"strings"
)

var (
	printfCall = regexp.MustCompile(`printf\s*\(\s*"([^"]*)"(?:,\s*[^)]+)?\s*\)`)

	verbInt       = regexp.MustCompile(`%d`)
	verbFixed2    = regexp.MustCompile(`%.2f`)
	verbChar      = regexp.MustCompile(`%c`)
	verbFloat     = regexp.MustCompile(`%f`)
	verbAnyFloat  = regexp.MustCompile(`%.?\d*f`)
	verbString    = regexp.MustCompile(`%s`)
	escapeNewline = strings.NewReplacer(`\n`, "\n", `\t`, "\t")
)

// SimulatePrintf fakes the output of a C program by echoing every
// printf("...") literal in order, with escape sequences expanded and format
// verbs replaced by mock values. It is what the remote judge backend falls back
// to when it has no API key.
func SimulatePrintf(code string) string {
	var out strings.Builder

	for _, m := range printfCall.FindAllStringSubmatch(code, -1) {
		content := escapeNewline.Replace(m[1])

		// Recognisable tutorial variables get friendlier values.
		if strings.Contains(code, "studentID") {
			content = verbInt.ReplaceAllLiteralString(content, "12345")
		}
		if strings.Contains(code, "gpa") {
			content = verbFixed2.ReplaceAllLiteralString(content, "3.85")
		}
		if strings.Contains(code, "grade") {
			content = verbChar.ReplaceAllLiteralString(content, "A")
		}

		content = verbInt.ReplaceAllLiteralString(content, "42")
		content = verbFloat.ReplaceAllLiteralString(content, "3.14159")
		content = verbAnyFloat.ReplaceAllLiteralString(content, "3.14")
		content = verbString.ReplaceAllLiteralString(content, "Hello World")
		content = verbChar.ReplaceAllLiteralString(content, "X")

		out.WriteString(content)
	}

	if out.Len() > 0 {
		return out.String()
	}
	if strings.Contains(code, "printf") {
		if strings.Contains(code, "Hello, World") {
			return "Hello, World!"
		}
		return "Program exited with code 0 (No output captured)"
	}
	return "Program exited with code 0"
}
