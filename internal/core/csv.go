package core

import "strings"

// ParseCSV splits text into rows of raw field values.
//
// Dialect: comma separator, double-quote quoting with "" as an escaped quote,
// CR, LF or CRLF row terminators. The last field and row are flushed without a
// trailing terminator. Rows whose fields are all blank after trimming are
// dropped once tokenizing has finished.
func ParseCSV(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case ch == '"':
			if inQuotes && next == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			row = append(row, field.String())
			field.Reset()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && next == '\n' {
				i++
			}
			row = append(row, field.String())
			rows = append(rows, row)
			row = nil
			field.Reset()
		default:
			field.WriteRune(ch)
		}
	}

	row = append(row, field.String())
	rows = append(rows, row)

	return dropBlankRows(rows)
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		if !isBlankRow(r) {
			out = append(out, r)
		}
	}
	return out
}

func isBlankRow(r []string) bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
