package core

// gviz.go decodes the wrapped tabular-JSON ("GViz") response format.
//
// The endpoint answers with a JavaScript statement such as
//
//	/*O_o*/
//	google.visualization.Query.setResponse({"version":"0.6","table":{...}});
//
// Only the outermost JSON object is extracted and parsed as strict JSON.
// The payload is never evaluated.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// dateLiteral matches the JSON rendering of GViz date values:
// "Date(2024,0,15)" or "Date(2024,0,15,9,30,0)". Months are zero-based.
var dateLiteral = regexp.MustCompile(`^Date\((\d{1,4}),(\d{1,2}),(\d{1,2})(?:,\d{1,2}){0,4}\)$`)

// DecodeTabularPayload extracts the balanced JSON object from text and converts
// its table into a Dataset.
func DecodeTabularPayload(text string) (Dataset, error) {
	table, err := ExtractTable(text)
	if err != nil {
		return Dataset{}, err
	}
	return TableToDataset(table), nil
}

// ExtractTable returns the "table" member of the JSON object embedded in text.
func ExtractTable(text string) (gjson.Result, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end <= start {
		return gjson.Result{}, ErrPayloadNotRecognized
	}

	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return gjson.Result{}, ErrPayloadParse
	}

	return EnvelopeTable(gjson.Parse(raw))
}

// EnvelopeTable returns the table of an already-parsed response envelope.
func EnvelopeTable(envelope gjson.Result) (gjson.Result, error) {
	table := envelope.Get("table")
	if !table.Exists() || table.Type == gjson.Null || !table.IsObject() {
		return gjson.Result{}, ErrNoTableData
	}
	return table, nil
}

// TableToDataset converts a GViz table object into a Dataset.
func TableToDataset(table gjson.Result) Dataset {
	cols := table.Get("cols").Array()
	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = firstNonEmpty(
			strings.TrimSpace(ValueString(col.Get("label"))),
			strings.TrimSpace(ValueString(col.Get("id"))),
			fmt.Sprintf("Column %d", i+1),
		)
	}

	rowsJSON := table.Get("rows").Array()
	rows := make([]Row, len(rowsJSON))
	for i, r := range rowsJSON {
		var values []string
		if cells := r.Get("c"); cells.IsArray() {
			for _, cell := range cells.Array() {
				values = append(values, cellString(cell))
			}
		}
		rows[i] = NormalizeRow(values, len(headers))
	}

	return Dataset{Headers: headers, Rows: rows}
}

// cellString renders one GViz cell. A non-blank formatted value ("f") wins
// over the raw value ("v").
func cellString(cell gjson.Result) string {
	if !cell.Exists() || cell.Type == gjson.Null {
		return ""
	}

	if f := cell.Get("f"); f.Exists() && f.Type != gjson.Null {
		if s := strings.TrimSpace(ValueString(f)); s != "" {
			return s
		}
	}

	v := cell.Get("v")
	if v.Type == gjson.String {
		if d, ok := formatDateLiteral(v.Str); ok {
			return d
		}
	}
	return ValueString(v)
}

// ValueString stringifies a JSON value the way a loosely typed caller would:
// null and missing become "", strings are returned verbatim, everything else
// uses its JSON text.
func ValueString(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.Str
	case gjson.Number:
		return formatNumber(r.Num)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return r.Raw
	}
}

// formatNumber prints the shortest round-trip form, switching to exponent
// notation ("1e+21", "1.5e-7") outside [1e-6, 1e21) like a JavaScript number.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// formatDateLiteral renders a GViz date literal as a US-locale short date (M/D/YYYY).
func formatDateLiteral(s string) (string, bool) {
	m := dateLiteral.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month > 11 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%d/%d/%d", month+1, day, year), true
}
