package logging

import (
	"regexp"
	"strings"
)

// Placeholder replaces every redacted secret.
const Placeholder = "***REDACTED***"

// keyPatterns match API key formats that may end up in error strings,
// such as a provider echoing the rejected key back.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]{16,}`),
}

// Redactor removes known secrets from text. It is immutable once built
// and safe for concurrent use.
type Redactor struct {
	literals []string
}

// NewRedactor creates a Redactor for the given secret values. Empty
// values are ignored.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s != "" {
			r.literals = append(r.literals, s)
		}
	}
	return r
}

// Redact replaces key-shaped substrings and literal secrets in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	for _, lit := range r.literals {
		s = strings.ReplaceAll(s, lit, Placeholder)
	}
	for _, p := range keyPatterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	return s
}
