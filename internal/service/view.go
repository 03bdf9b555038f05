package service

import (
	"time"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// Empty-state texts for the table.
const (
	EmptyNoDataText  = "Paste a Google Sheet and click View Data."
	EmptyNoMatchText = "No results found"
)

// View is what renderers consume: the visible rows, KPIs and filter choices.
type View struct {
	Loaded    bool                 `json:"loaded"`
	Headers   []string             `json:"headers"`
	Rows      []core.Row           `json:"rows"`
	Roles     core.ColumnRoleIndex `json:"roles"`
	Criteria  core.FilterCriteria  `json:"criteria"`
	Options   core.FilterOptions   `json:"options"`
	Source    string               `json:"source,omitempty"`
	Feedback  Feedback             `json:"feedback"`
	LoadedAt  *time.Time           `json:"loadedAt,omitempty"`
	TotalRows int                  `json:"totalRows"`

	// KPIs over the visible rows.
	TotalProjects   int `json:"totalProjects"`
	TotalMilestones int `json:"totalMilestones"`

	Loading bool `json:"loading"`
}

// EmptyText returns the table placeholder, or "" when rows are visible.
func (v View) EmptyText() string {
	switch {
	case !v.Loaded:
		return EmptyNoDataText
	case len(v.Rows) == 0:
		return EmptyNoMatchText
	default:
		return ""
	}
}

// buildView applies the state's criteria to its dataset.
func buildView(st State) View {
	v := View{
		Loaded:   !st.Dataset.IsEmpty(),
		Headers:  st.Dataset.Headers,
		Rows:     []core.Row{},
		Roles:    st.Roles,
		Criteria: st.Criteria,
		Options:  st.Options,
		Source:   st.Source,
		Feedback: st.Feedback,
	}
	if v.Headers == nil {
		v.Headers = []string{}
	}
	if !v.Loaded {
		return v
	}

	res := core.ApplyFilters(st.Dataset.Rows, st.Roles, st.Criteria)
	v.Rows = res.Rows
	v.TotalProjects = res.SystemCount
	v.TotalMilestones = res.RowCount
	v.TotalRows = len(st.Dataset.Rows)
	if !st.LoadedAt.IsZero() {
		at := st.LoadedAt
		v.LoadedAt = &at
	}
	return v
}
