package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// kindAliases maps package-qualified error types to report labels. Lookups
// ignore a leading "*".
var kindAliases = map[string]string{
	"openai.APIError":               "Upstream API error",
	"openai.RequestError":           "Upstream request error",
	"proxy.HTTPError":               "HTTP error response",
	"url.Error":                     "Request URL error",
	"net.OpError":                   "Network error",
	"net.DNSError":                  "DNS error",
	"context.deadlineExceededError": "Context deadline exceeded",
	"errors.errorString":            "Error",
	"fmt.wrapError":                 "Error",
	"fmt.wrapErrors":                "Error",
}

// ErrorKind labels err for the error breakdown. Layers added with fmt.Errorf
// are peeled off so the label names the underlying failure.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Context canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Context deadline exceeded"
	}
	return FriendlyErrorName(fmt.Sprintf("%T", rootCause(err)))
}

func rootCause(err error) error {
	for fmt.Sprintf("%T", err) == "*fmt.wrapError" {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

// FriendlyErrorName turns a Go type name such as "*net.OpError" into a label.
// Unknown types become spaced words followed by their package in parentheses.
func FriendlyErrorName(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if name == "" {
		return "Unknown error"
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if alias, ok := kindAliases[name]; ok {
		return alias
	}

	pkg, typ, found := strings.Cut(name, ".")
	if !found {
		pkg, typ = "", name
	}
	label := strings.Join(splitWords(typ), " ")
	if label == "" {
		label = typ
	}
	if pkg == "" || pkg == "main" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, pkg)
}

// splitWords breaks a Go identifier at case and digit boundaries, keeping
// acronyms such as "HTTP" or "EOF" intact.
func splitWords(ident string) []string {
	runes := []rune(ident)
	var words []string
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && !wordBoundary(runes, i) {
			continue
		}
		words = append(words, titleWord(string(runes[start:i])))
		start = i
	}
	return words
}

func wordBoundary(runes []rune, i int) bool {
	prev, cur := runes[i-1], runes[i]
	switch {
	case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
		return true
	case unicode.IsUpper(cur) && unicode.IsUpper(prev):
		return i+1 < len(runes) && unicode.IsLower(runes[i+1])
	case unicode.IsDigit(cur):
		return !unicode.IsDigit(prev)
	}
	return false
}

func titleWord(w string) string {
	if strings.ToUpper(w) == w {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
