package cmd

import (
	"testing"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "news@example.com",
			expected: []string{"news@example.com"},
		},
		{
			name:     "multiple values",
			input:    "news@example.com,promo@example.com",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "values with spaces around comma",
			input:    "news@example.com, promo@example.com",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "values with leading/trailing spaces",
			input:    "  news@example.com  ,  promo@example.com  ",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "trailing comma",
			input:    "news@example.com,promo@example.com,",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "leading comma",
			input:    ",news@example.com,promo@example.com",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "news@example.com,,promo@example.com",
			expected: []string{"news@example.com", "promo@example.com"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: []string{},
		},
		{
			name:     "single value with surrounding whitespace",
			input:    "  news@example.com  ",
			expected: []string{"news@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)

			// Handle nil vs empty slice comparison
			if tt.expected == nil {
				if result != nil {
					t.Errorf("parseCommaSeparatedList(%q) = %v, want nil", tt.input, result)
				}
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("parseCommaSeparatedList(%q) = %v (len %d), want %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
				return
			}

			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q",
						tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}
