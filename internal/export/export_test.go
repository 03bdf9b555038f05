package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

var (
	testHeaders = []string{"System", "Next Milestone", "Notes"}
	testRows    = []core.Row{
		{"Alpha", "GA", `says "hi", twice`},
		{"Beta", "", "multi\nline"},
	}
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatCSV},
		{in: "csv", want: FormatCSV},
		{in: " XLSX ", want: FormatXLSX},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, testHeaders, testRows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "System,Next Milestone,Notes\n" +
		"Alpha,GA,\"says \"\"hi\"\", twice\"\n" +
		"Beta,,\"multi\nline\"\n"
	if got := buf.String(); got != want {
		t.Errorf("CSV output =\n%q\nwant\n%q", got, want)
	}

	// The exported file must read back through the dashboard's own tokenizer.
	parsed := core.ParseCSV(buf.String())
	if len(parsed) != 3 || parsed[1][2] != `says "hi", twice` || parsed[2][2] != "multi\nline" {
		t.Errorf("ParseCSV(export) = %q", parsed)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, testHeaders, testRows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][1] != "Next Milestone" || rows[1][2] != `says "hi", twice` || rows[2][0] != "Beta" {
		t.Errorf("unexpected sheet contents: %q", rows)
	}

	styleID, err := f.GetCellStyle(SheetName, "C1")
	if err != nil {
		t.Fatalf("GetCellStyle() error = %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("GetStyle() error = %v", err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Error("header cells should be bold")
	}
}

func TestWriteXLSX_NoRows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, testHeaders, nil); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even without rows")
	}
}

func TestFormatMetadata(t *testing.T) {
	if got := FormatXLSX.Filename("status"); got != "status.xlsx" {
		t.Errorf("Filename() = %q", got)
	}
	if got := FormatCSV.Filename(""); got != "projects.csv" {
		t.Errorf("Filename() = %q", got)
	}
	if got := FormatCSV.ContentType(); got != "text/csv; charset=utf-8" {
		t.Errorf("ContentType() = %q", got)
	}
}
