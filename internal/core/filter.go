package core

import (
	"sort"
	"strings"
)

// CellValue returns the trimmed value at index, or "" when the index is
// unresolved or past the end of the row.
func CellValue(row Row, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// ApplyFilters returns the rows matching every constraint in c, in their
// original order, together with KPIs computed over that visible subset.
//
// System and milestone are exact matches. The search term is matched
// case-insensitively against the system, milestone, developer and manager
// cells joined by spaces.
func ApplyFilters(rows []Row, idx ColumnRoleIndex, c FilterCriteria) FilterResult {
	needle := strings.ToLower(strings.TrimSpace(c.SearchSubstring))

	visible := make([]Row, 0, len(rows))
	for _, row := range rows {
		system := CellValue(row, idx.System)
		milestone := CellValue(row, idx.Milestone)

		if c.SystemEquals != "" && system != c.SystemEquals {
			continue
		}
		if c.MilestoneEquals != "" && milestone != c.MilestoneEquals {
			continue
		}
		if needle != "" {
			haystack := strings.ToLower(strings.Join([]string{
				system,
				milestone,
				CellValue(row, idx.Developer),
				CellValue(row, idx.Manager),
			}, " "))
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		visible = append(visible, row)
	}

	return FilterResult{
		Rows:        visible,
		SystemCount: countDistinct(visible, idx.System),
		RowCount:    len(visible),
	}
}

// BuildFilterOptions collects the distinct non-empty system and milestone
// values across all rows, sorted ascending.
func BuildFilterOptions(rows []Row, idx ColumnRoleIndex) FilterOptions {
	return FilterOptions{
		Systems:    uniqueValues(rows, idx.System),
		Milestones: uniqueValues(rows, idx.Milestone),
	}
}

func countDistinct(rows []Row, index int) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if v := CellValue(row, index); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func uniqueValues(rows []Row, index int) []string {
	values := []string{}
	if index < 0 {
		return values
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		v := CellValue(row, index)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := strings.ToLower(values[i]), strings.ToLower(values[j])
		if a != b {
			return a < b
		}
		return values[i] < values[j]
	})
	return values
}
