package validation

import (
	"regexp"
	"strings"

	"github.com/ultimatemcp/platform/internal/apierr"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:-]{0,127}$`)

const pathMaxBytes = 1024

// ValidateIdentifier enforces identifier grammar.
func ValidateIdentifier(s string) error {
	if !identifierRe.MatchString(s) {
		return apierr.New(apierr.KindInvalidInput, "invalid identifier: "+s).
			WithDetails(map[string]any{"offending_token": s})
	}
	return nil
}

// ValidatePath enforces path grammar: relative, no ".."
// segment, no absolute or drive-qualified root, bounded length.
func ValidatePath(s string) error {
	if len(s) > pathMaxBytes {
		return apierr.New(apierr.KindInvalidInput, "path exceeds maximum length")
	}
	if s == "" {
		return apierr.New(apierr.KindInvalidInput, "path must not be empty")
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) {
		return apierr.New(apierr.KindInvalidInput, "path must be relative: "+s)
	}
	if len(s) >= 2 && s[1] == ':' {
		return apierr.New(apierr.KindInvalidInput, "path must not be drive-qualified: "+s)
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return apierr.New(apierr.KindInvalidInput, "path must not contain a \"..\" segment: "+s)
		}
	}
	return nil
}
