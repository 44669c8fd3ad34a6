package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxQuerySize is 4KB (conservative default)
	DefaultMaxQuerySize = 4096
	// EnvMaxQuerySize is the environment variable to override the default
	EnvMaxQuerySize = "CUBEFLOW_MAX_QUERY_SIZE"
)

var (
	ErrQueryTooLarge = errors.New("query exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("query contains invalid UTF-8 sequences")
	ErrEmptyQuery    = errors.New("query is empty")
)

// SanitizeQuery cleans a user question by enforcing size limits,
// validating UTF-8, and stripping dangerous control characters.
// Surrounding whitespace is trimmed; a blank result is rejected.
func SanitizeQuery(input string) (string, error) {
	limit := maxQuerySize()
	if len(input) > limit {
		// Reject rather than truncate: a cut question could select the wrong members.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrQueryTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return survive; ESC, NUL, BEL and the rest go.
	// This prevents log poisoning and terminal corruption.
	clean := input
	if strings.IndexFunc(input, isUnsafeControl) >= 0 {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !isUnsafeControl(r) {
				b.WriteRune(r)
			}
		}
		clean = b.String()
	}

	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmptyQuery
	}
	return clean, nil
}

// IsInputError reports whether err came from SanitizeQuery.
func IsInputError(err error) bool {
	return errors.Is(err, ErrQueryTooLarge) || errors.Is(err, ErrInvalidUTF8) || errors.Is(err, ErrEmptyQuery)
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxQuerySize() int {
	if val := os.Getenv(EnvMaxQuerySize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxQuerySize
}
