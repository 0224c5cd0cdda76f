package metrics

import (
	"fmt"
	"strings"
	"unicode"
)

// friendlyNames holds fixed labels for the error types the harness
// produces itself plus the stdlib types probes commonly surface. Keys
// are normalized without the pointer star.
var friendlyNames = map[string]string{
	"probe.HTTPError":               "HTTP error response",
	"probe.HeaderError":             "Malformed timing header",
	"probe.MissingHeader":           "Missing timing header",
	"url.Error":                     "Request URL error",
	"context.deadlineExceededError": "Context deadline exceeded",
	"context.deadlineExceeded":      "Context deadline exceeded",
}

// FriendlyErrorName maps a Go error type name ("*url.Error") onto a
// label fit for reports. Known types get fixed labels; anything else is
// split into words with its package appended.
func FriendlyErrorName(typeName string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if cleaned == "" {
		return "Unknown error"
	}
	if label, ok := friendlyNames[cleaned]; ok {
		return label
	}
	if idx := strings.LastIndex(cleaned, "/"); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}

	pkg, name := "", cleaned
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		pkg, name = name[:idx], name[idx+1:]
	}

	label := strings.Join(titleWords(splitCamel(name)), " ")
	if label == "" {
		label = name
	}

	switch lower := strings.ToLower(label); {
	case strings.EqualFold(pkg, "context") && strings.Contains(lower, "deadline"):
		return "Context deadline exceeded"
	case strings.EqualFold(pkg, "probe") && strings.Contains(lower, "http error"):
		return "HTTP error response"
	case strings.EqualFold(pkg, "probe") && strings.Contains(lower, "header"):
		return "Malformed timing header"
	case strings.EqualFold(pkg, "url") && strings.Contains(lower, "error"):
		return "Request URL error"
	}

	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", label, pkg)
	}
	return label
}

// splitCamel breaks a Go identifier into display words. Acronym runs
// stay whole: "HTTPError" splits into "HTTP" and "Error".
func splitCamel(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsUpper(cur) && unicode.IsLower(prev):
			boundary = true
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		case unicode.IsDigit(cur) && !unicode.IsDigit(prev):
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

// titleWords capitalizes each word, leaving acronyms untouched.
func titleWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if isAcronym(w) {
			out = append(out, w)
			continue
		}
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		out = append(out, string(runes))
	}
	return out
}

func isAcronym(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
