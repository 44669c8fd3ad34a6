package runner

import (
	"strings"
	"testing"
)

func TestSanitizeQuery_SizeLimit(t *testing.T) {
	// Default Limit is 4096
	limit := 4096

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := strings.Repeat("a", tt.inputSize)
			_, err := SanitizeQuery(input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("SanitizeQuery() expected error for size %d, got nil", tt.inputSize)
				}
			} else {
				if err != nil {
					t.Errorf("SanitizeQuery() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestSanitizeQuery_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Top revenue in 2022", "Top revenue in 2022"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"}, // ESC removed
		{"Null Byte", "Null\x00Byte", "NullByte"},         // NULL removed
		{"Bell", "Ding\x07", "Ding"},                      // BEL removed
		{"Trimmed", "  revenue \n", "revenue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeQuery(tt.input)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeQuery_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxQuerySize, "10")

	// Input len 11 -> Should fail
	_, err := SanitizeQuery("12345678901")
	if err == nil {
		t.Error("Expected error for input > 10 when env var is set")
	}

	// Input len 5 -> Should pass
	_, err = SanitizeQuery("12345")
	if err != nil {
		t.Error("Unexpected error for valid input")
	}
}

func TestSanitizeQuery_InvalidUTF8(t *testing.T) {
	// Invalid UTF-8 sequence
	input := "\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98"
	_, err := SanitizeQuery(input)
	if err != ErrInvalidUTF8 {
		t.Errorf("Expected ErrInvalidUTF8, got %v", err)
	}
}

func TestSanitizeQuery_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\x00\x07", "\n\t"} {
		_, err := SanitizeQuery(in)
		if err != ErrEmptyQuery {
			t.Errorf("SanitizeQuery(%q): expected ErrEmptyQuery, got %v", in, err)
		}
		if !IsInputError(err) {
			t.Errorf("IsInputError(%v) = false", err)
		}
	}
}
