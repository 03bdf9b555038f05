package core

import (
	"regexp"
	"strings"
)

// Role names a semantic column.
type Role string

const (
	RoleSystem    Role = "system"
	RoleMilestone Role = "milestone"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
)

// RoleAliases lists, per role, the normalized header names that identify it.
// Order within a list does not affect matching; headers are scanned in order.
var RoleAliases = map[Role][]string{
	RoleSystem:    {"system", "project name", "system project name"},
	RoleMilestone: {"milestone", "next milestone"},
	RoleDeveloper: {"assigned developer", "developer"},
	RoleManager:   {"assigned project manager", "project manager"},
}

var (
	parenGroup  = regexp.MustCompile(`\([^)]*\)`)
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// NormalizeHeader canonicalizes a header for alias comparison:
// "Assigned Developer (Primary)" -> "assigned developer".
func NormalizeHeader(h string) string {
	s := strings.ToLower(h)
	s = parenGroup.ReplaceAllString(s, " ")
	s = nonAlnumRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return spaceRun.ReplaceAllString(s, " ")
}

// ResolveColumns finds the header index of each role.
// When headers exist but no system alias matched, the first column is used
// as the system column. With duplicate header names the first one wins.
func ResolveColumns(headers []string) ColumnRoleIndex {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	idx := ColumnRoleIndex{
		System:    findAlias(normalized, RoleAliases[RoleSystem]),
		Milestone: findAlias(normalized, RoleAliases[RoleMilestone]),
		Developer: findAlias(normalized, RoleAliases[RoleDeveloper]),
		Manager:   findAlias(normalized, RoleAliases[RoleManager]),
	}

	if idx.System < 0 && len(headers) > 0 {
		idx.System = 0
	}
	return idx
}

func findAlias(normalized []string, aliases []string) int {
	want := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		want[NormalizeHeader(a)] = struct{}{}
	}
	for i, h := range normalized {
		if _, ok := want[h]; ok {
			return i
		}
	}
	return -1
}
