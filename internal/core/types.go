package core

import "strings"

// SheetReference identifies a published spreadsheet and, optionally, one tab in it.
// Empty strings mean "unset".
type SheetReference struct {
	SheetID   string `json:"sheetId"`
	GID       string `json:"gid,omitempty"`
	SheetName string `json:"sheetName,omitempty"`
}

// IsZero reports whether no sheet identifier could be extracted.
func (r SheetReference) IsZero() bool {
	return r.SheetID == ""
}

// Key returns a stable identity for the reference, used to share in-flight loads.
func (r SheetReference) Key() string {
	return r.SheetID + "|" + r.GID + "|" + r.SheetName
}

// Row is one data row, positionally aligned to Dataset.Headers.
type Row []string

// Dataset is a normalized table: ordered headers plus rectangular rows.
// Every row has exactly len(Headers) values.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// IsEmpty reports whether the dataset has no columns.
func (d Dataset) IsEmpty() bool {
	return len(d.Headers) == 0
}

// Clone returns a deep copy so callers can hand the dataset out without
// sharing backing arrays.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Headers: append([]string(nil), d.Headers...),
		Rows:    make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// NormalizeRow pads row with empty strings or truncates it to exactly n values.
// The input slice is never modified.
func NormalizeRow(row []string, n int) Row {
	if n < 0 {
		n = 0
	}
	out := make(Row, n)
	copy(out, row)
	return out
}

// ColumnRoleIndex maps each semantic role to a header index, or -1 when unresolved.
type ColumnRoleIndex struct {
	System    int `json:"system"`
	Milestone int `json:"milestone"`
	Developer int `json:"developer"`
	Manager   int `json:"manager"`
}

// UnresolvedRoles is the role index of an empty dataset.
var UnresolvedRoles = ColumnRoleIndex{System: -1, Milestone: -1, Developer: -1, Manager: -1}

// FilterCriteria constrains the visible rows. Empty fields impose no constraint.
type FilterCriteria struct {
	SystemEquals    string `json:"system"`
	MilestoneEquals string `json:"milestone"`
	SearchSubstring string `json:"search"`
}

// IsZero reports whether no constraint is set.
func (c FilterCriteria) IsZero() bool {
	return c.SystemEquals == "" && c.MilestoneEquals == "" && strings.TrimSpace(c.SearchSubstring) == ""
}

// FilterResult is the visible row subset plus the KPIs derived from it.
type FilterResult struct {
	Rows []Row `json:"rows"`

	// SystemCount is the number of distinct non-empty system values among Rows.
	SystemCount int `json:"systemCount"`

	// RowCount is len(Rows).
	RowCount int `json:"rowCount"`
}

// FilterOptions lists the selectable values for the system and milestone filters.
type FilterOptions struct {
	Systems    []string `json:"systems"`
	Milestones []string `json:"milestones"`
}
