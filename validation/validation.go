// Package validation checks shorten requests before they reach the store and
// reports problems per field.
package validation

import (
	"net/url"
	"sort"
	"strings"

	"goshortcode/idgenerator"
)

const (
	MaxURLLength  = 2000
	MinCodeLength = 3
	MaxCodeLength = 15

	FieldOriginalURL = "original_url"
	FieldShortCode   = "short_code"
)

// FieldErrors maps a request field to the messages describing what is wrong with it.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(f[field], " "))
	}
	return b.String()
}

// Shorten validates a shorten request. A nil or empty shortCode means the
// caller wants a generated code. It returns nil or a non-empty FieldErrors.
func Shorten(originalURL, shortCode *string) error {
	errs := FieldErrors{}
	if originalURL == nil {
		errs.Add(FieldOriginalURL, "This field is required.")
	} else {
		for _, msg := range urlProblems(*originalURL) {
			errs.Add(FieldOriginalURL, msg)
		}
	}
	if shortCode != nil {
		for _, msg := range codeProblems(*shortCode) {
			errs.Add(FieldShortCode, msg)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IsShortCode reports whether code could have been assigned by the store,
// either by a caller or by the generator.
func IsShortCode(code string) bool {
	return code != "" && len(codeProblems(code)) == 0
}

func urlProblems(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"This field may not be blank."}
	}
	var problems []string
	if len(raw) > MaxURLLength {
		problems = append(problems, "Ensure this field has no more than 2000 characters.")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		problems = append(problems, "URL must start with http:// or https://.")
		return problems
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Host == "" || strings.ContainsAny(raw, " \t\n") {
		problems = append(problems, "Enter a valid URL.")
	}
	return problems
}

func codeProblems(code string) []string {
	if code == "" {
		return nil
	}
	var problems []string
	if !idgenerator.InAlphabet(code) {
		problems = append(problems, "Short code can only contain letters and numbers.")
	}
	if len(code) < MinCodeLength {
		problems = append(problems, "Short code must be at least 3 characters long.")
	}
	if len(code) > MaxCodeLength {
		problems = append(problems, "Ensure this field has no more than 15 characters.")
	}
	return problems
}
