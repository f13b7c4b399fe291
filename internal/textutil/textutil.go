// Package textutil normalises the free-form text that flows through member
// names, login codes, parameter keys and catalog paths so that every
// component compares and indexes on the same canonical form.
package textutil

import (
	"strings"
	"unicode"
)

// ProcessIDText normalises a name/key into a lowercase identifier: ascii
// letters and digits are kept, separators (-, ., comma, space) collapse to
// a single underscore, and any underscore already present in the input is
// dropped (only separator-derived underscores survive).
func ProcessIDText(input string) string {
	return processID(input, true)
}

// ProcessIDTextNotToLower is ProcessIDText without the lowercasing pass,
// used where case carries meaning (e.g. a parameter key echoed back verbatim).
func ProcessIDTextNotToLower(input string) string {
	return processID(input, false)
}

func processID(input string, toLower bool) string {
	s := strings.TrimSpace(input)
	if toLower {
		s = strings.ToLower(s)
	}

	var b strings.Builder
	for _, c := range s {
		switch c {
		case '\n', '_':
			continue
		case '-', '.', ',', ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(c)
		}
	}

	var out strings.Builder
	for _, c := range b.String() {
		if c == '_' || unicode.IsDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// ProcessPathText canonicalises a filesystem path into the slash-separated
// form the catalog indexes on: backslashes and pipes become forward
// slashes, characters illegal on common filesystems are stripped, control
// characters become spaces, and a leading drive letter ("C:") is preserved
// verbatim.
func ProcessPathText(path string) string {
	runes := []rune(path)
	var prefix string
	if len(runes) >= 2 && isASCIIAlpha(runes[0]) && runes[1] == ':' {
		prefix = string(runes[0]) + ":"
		runes = runes[2:]
	}
	return prefix + processPathRunes(runes)
}

func processPathRunes(rest []rune) string {
	var b strings.Builder
	for _, c := range rest {
		switch {
		case c == '\\' || c == '|' || c == '/':
			b.WriteRune('/')
		case c == '<' || c == '>' || c == '"' || c == '?' || c == '*' || c == ':':
			// dropped: illegal on common filesystems
		case unicode.IsControl(c):
			b.WriteRune(' ')
		default:
			b.WriteRune(c)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.TrimRight(cleaned, "/")
	return cleaned
}

func isASCIIAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// NormalizePath collapses "." and ".." segments and drops empty segments,
// the same rule the search-expression compiler applies before comparing
// a resolved path against the catalog index. An empty result is an error
// the caller must check for (encoded here as ok == false).
func NormalizePath(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	parts := strings.Split(path, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch strings.TrimSpace(part) {
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ".", "":
			continue
		default:
			stack = append(stack, part)
		}
	}

	normalized := strings.Join(stack, "/")
	if normalized == "" {
		return "", false
	}
	return normalized, true
}

// DirOf returns the directory prefix of path (everything up to and
// including the last slash), or "" if path has no slash.
func DirOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx+1]
	}
	return ""
}
