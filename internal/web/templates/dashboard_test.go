package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
)

func render(t *testing.T, p DashboardParams) string {
	t.Helper()
	var b strings.Builder
	if err := DashboardBody(p).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestDashboardBody_EmptyState(t *testing.T) {
	out := render(t, DashboardParams{})

	if !strings.Contains(out, service.EmptyNoDataText) {
		t.Errorf("expected no-data placeholder, got %s", out)
	}
	if strings.Contains(out, "<table>") {
		t.Error("empty dashboard should not render a table")
	}
	if strings.Contains(out, `name="system"`) {
		t.Error("filters should be hidden until data is loaded")
	}
}

func TestDashboardBody_LoadedEscapesCells(t *testing.T) {
	v := service.View{
		Loaded:          true,
		Headers:         []string{"System", "Next Milestone"},
		Rows:            []core.Row{{"<b>Alpha</b>", "GA & beyond"}},
		Options:         core.FilterOptions{Systems: []string{"<b>Alpha</b>"}, Milestones: []string{"GA & beyond"}},
		Criteria:        core.FilterCriteria{SystemEquals: "<b>Alpha</b>"},
		Feedback:        service.Feedback{Message: "Loaded 1 rows via GViz JSON."},
		TotalProjects:   1,
		TotalMilestones: 1,
	}
	out := render(t, DashboardParams{View: v, SourceInput: `x" onfocus="alert(1)`})

	for _, want := range []string{
		"&lt;b&gt;Alpha&lt;/b&gt;",
		"GA &amp; beyond",
		"Loaded 1 rows via GViz JSON.",
		`<option value="&lt;b&gt;Alpha&lt;/b&gt;" selected>`,
		"&#34;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<b>Alpha</b>") || strings.Contains(out, `onfocus="alert`) {
		t.Error("output contains unescaped user content")
	}
}

func TestDashboardBody_NoMatchAndErrorFeedback(t *testing.T) {
	v := service.View{
		Loaded:   true,
		Headers:  []string{"System"},
		Rows:     []core.Row{},
		Feedback: service.Feedback{Message: "boom", IsError: true},
	}
	out := render(t, DashboardParams{View: v})

	if !strings.Contains(out, service.EmptyNoMatchText) {
		t.Error("expected no-match placeholder")
	}
	if !strings.Contains(out, `class="feedback error"`) {
		t.Error("error feedback should use the error style")
	}
}

func TestDashboard_FullPage(t *testing.T) {
	var b strings.Builder
	if err := Dashboard(DashboardParams{}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "<!DOCTYPE html>") || !strings.Contains(out, `id="dashboard"`) {
		t.Errorf("unexpected page: %s", out)
	}
}

func TestErrorAlert(t *testing.T) {
	var b strings.Builder
	_ = ErrorAlert("Request timed out", "Try again", "REQ002").Render(context.Background(), &b)
	if got := b.String(); !strings.Contains(got, "REQ002") || !strings.Contains(got, `role="alert"`) {
		t.Errorf("ErrorAlert() = %s", got)
	}
}
