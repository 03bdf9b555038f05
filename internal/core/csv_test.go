package core

import (
	"reflect"
	"testing"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "quoted comma, doubled quote and blank line",
			input: "a,\"b,c\",\"d\"\"e\"\nf,g,h\r\n\n",
			want:  [][]string{{"a", "b,c", `d"e`}, {"f", "g", "h"}},
		},
		{
			name:  "no trailing terminator",
			input: "x,y\n1,2",
			want:  [][]string{{"x", "y"}, {"1", "2"}},
		},
		{
			name:  "CRLF is a single terminator",
			input: "a\r\nb\r\nc",
			want:  [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name:  "bare CR terminates rows",
			input: "a\rb",
			want:  [][]string{{"a"}, {"b"}},
		},
		{
			name:  "newline inside quotes is kept",
			input: "\"line1\nline2\",z",
			want:  [][]string{{"line1\nline2", "z"}},
		},
		{
			name:  "blank line inside quotes is not a row boundary",
			input: "\"top\n\nbottom\"\nnext",
			want:  [][]string{{"top\n\nbottom"}, {"next"}},
		},
		{
			name:  "whitespace-only rows are dropped",
			input: "h1,h2\n  ,\t\nv1,v2",
			want:  [][]string{{"h1", "h2"}, {"v1", "v2"}},
		},
		{
			name:  "empty fields are preserved in non-blank rows",
			input: "a,,c\n,,x",
			want:  [][]string{{"a", "", "c"}, {"", "", "x"}},
		},
		{
			name:  "ragged rows are returned as-is",
			input: "a,b,c\n1\n1,2,3,4",
			want:  [][]string{{"a", "b", "c"}, {"1"}, {"1", "2", "3", "4"}},
		},
		{
			name:  "unicode content",
			input: "név,状態\nÅsa,完了",
			want:  [][]string{{"név", "状態"}, {"Åsa", "完了"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  [][]string{},
		},
		{
			name:  "only newlines",
			input: "\n\r\n\n",
			want:  [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCSV(%q)\n got  %q\n want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		n    int
		want Row
	}{
		{name: "pads short row", row: []string{"X"}, n: 2, want: Row{"X", ""}},
		{name: "truncates long row", row: []string{"Y", "Z", "W"}, n: 2, want: Row{"Y", "Z"}},
		{name: "exact length", row: []string{"A", "B"}, n: 2, want: Row{"A", "B"}},
		{name: "nil row", row: nil, n: 3, want: Row{"", "", ""}},
		{name: "zero width", row: []string{"A"}, n: 0, want: Row{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRow(tt.row, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRow(%q, %d) = %q, want %q", tt.row, tt.n, got, tt.want)
			}
		})
	}

	t.Run("does not alias input", func(t *testing.T) {
		in := []string{"a", "b"}
		out := NormalizeRow(in, 2)
		out[0] = "changed"
		if in[0] != "a" {
			t.Error("NormalizeRow modified its input")
		}
	})
}
