/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package tsv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dbchat/internal/database"
)

func TestFormatValue(t *testing.T) {
	ts := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"nil is empty", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"int64", int64(42), "42"},
		{"float", 3.14, "3.14"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"time RFC3339", ts, "2025-06-15T10:30:00Z"},
		{"tab escaped", "a\tb", "a\\tb"},
		{"newline escaped", "line1\nline2", "line1\\nline2"},
		{"carriage return escaped", "a\rb", "a\\rb"},
		{"array as JSON", []interface{}{"x", float64(1)}, `["x",1]`},
		{"map as JSON", map[string]interface{}{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.input); got != tt.expected {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	result := &database.Result{
		Columns: []string{"id", "name", "note"},
		Rows: [][]interface{}{
			{int64(1), "alice", nil},
			{int64(2), "bob\tthe builder", "has\ttab"},
		},
	}

	got := FormatResult(result)
	want := "id\tname\tnote\n1\talice\t\n2\tbob\\tthe builder\thas\\ttab"
	if got != want {
		t.Errorf("FormatResult =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatResultEmpty(t *testing.T) {
	if got := FormatResult(nil); got != "" {
		t.Errorf("FormatResult(nil) = %q", got)
	}
	if got := FormatResult(&database.Result{}); got != "" {
		t.Errorf("FormatResult(empty) = %q", got)
	}
	// Header only when there are columns but no rows
	got := FormatResult(&database.Result{Columns: []string{"a", "b"}})
	if got != "a\tb" {
		t.Errorf("header-only result = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	result := &database.Result{
		Columns: []string{"n"},
		Rows:    [][]interface{}{{int64(7)}},
	}
	if err := WriteFile(path, result); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "n\n7\n" {
		t.Errorf("file contents = %q", string(data))
	}
}

func TestBuildRow(t *testing.T) {
	if got := BuildRow("a", "b\tc", "d"); got != "a\tb\\tc\td" {
		t.Errorf("BuildRow = %q", got)
	}
}
