package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Tanaka", "Tanaka"},
		{"leading and trailing spaces", "  Tanaka  ", "Tanaka"},
		{"internal runs collapse", "Tanaka   Taro", "Tanaka Taro"},
		{"tabs and newlines", "Tanaka\t\nTaro", "Tanaka Taro"},
		{"full-width text preserved", "田中 太郎", "田中 太郎"},
		{"empty", "", ""},
		{"only whitespace", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.expected {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeUnit(t *testing.T) {
	if got := NormalizeUnit(" A "); got != "A" {
		t.Errorf("NormalizeUnit(\" A \") = %q, want \"A\"", got)
	}
}
