package sanitizer

import (
	"reflect"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Apple", "apple"},
		{"  APPLE ", "apple"},
		{"Premium Laptop", "premium_laptop"},
		{"premium-laptop", "premium_laptop"},
		{"premium__laptop", "premium_laptop"},
		{"--", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeKey(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if again := SanitizeKey(got); again != got {
				t.Errorf("SanitizeKey is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"collapses whitespace", "  customer \t\n asked  ", 0, "customer asked"},
		{"truncates", "abcdef", 3, "abc"},
		{"counts runes", "££££", 2, "££"},
		{"empty", "   ", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input, tt.max); got != tt.expected {
				t.Errorf("NormalizeText(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestSanitizeIDs(t *testing.T) {
	got := SanitizeIDs([]string{" screen-crack", "", "battery", "screen-crack ", "  "})
	expected := []string{"screen-crack", "battery"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("SanitizeIDs() = %v, want %v", got, expected)
	}

	if got := SanitizeIDs(nil); len(got) != 0 {
		t.Errorf("SanitizeIDs(nil) should be empty, got %v", got)
	}
}

func TestSanitizeKeys(t *testing.T) {
	got := SanitizeKeys([]string{"Apple", "apple", "Premium Laptop"})
	expected := []string{"apple", "premium_laptop"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("SanitizeKeys() = %v, want %v", got, expected)
	}
}

func TestClampInt(t *testing.T) {
	if ClampInt(-5, 0, 100) != 0 || ClampInt(150, 0, 100) != 100 || ClampInt(42, 0, 100) != 42 {
		t.Errorf("ClampInt returned unexpected values")
	}
}
