/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"strings"
	"testing"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, "NULL"},
		{"text", "text"},
		{int64(42), "42"},
		{3.5, "3.5"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := formatCell(tt.input); got != tt.expected {
			t.Errorf("formatCell(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 5); got != "ab   " {
		t.Errorf("pad = %q", got)
	}
	if got := pad("abcdef", 3); got != "abcdef" {
		t.Errorf("pad should not truncate: %q", got)
	}
}

func TestPlural(t *testing.T) {
	if plural(1) != "" || plural(0) != "s" || plural(2) != "s" {
		t.Error("plural suffix wrong")
	}
}

func TestColorizeRespectsNoColor(t *testing.T) {
	plain := NewUI(true, false)
	if got := plain.colorize(ColorGreen, "hi"); got != "hi" {
		t.Errorf("noColor output = %q", got)
	}

	colored := NewUI(false, false)
	got := colored.colorize(ColorGreen, "hi")
	if !strings.Contains(got, "hi") || !strings.Contains(got, ColorGreen) || !strings.HasSuffix(got, ColorReset) {
		t.Errorf("colored output = %q", got)
	}
}
