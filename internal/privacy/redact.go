// Package privacy strips user-configured patterns from post text before it
// reaches the terminal. Useful when picks are screenshotted or streamed:
// mentions, emails, or anything else matching a configured regex is masked.
package privacy

import (
	"fmt"
	"regexp"
)

const redactedPlaceholder = "[REDACTED]"

// Redactor masks every match of its patterns in displayed text.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles the pattern strings into a Redactor. Returns an error when
// any pattern is not a valid regexp. An empty pattern list yields a
// Redactor that passes text through unchanged.
func New(patterns []string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Redactor{patterns: compiled}, nil
}

// Apply replaces all matches in text with [REDACTED]. A nil Redactor
// passes text through.
func (r *Redactor) Apply(text string) string {
	if r == nil {
		return text
	}
	for _, re := range r.patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
