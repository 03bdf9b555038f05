// Package templates renders the dashboard HTML as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
)

// DashboardParams is everything the dashboard page needs.
type DashboardParams struct {
	View service.View

	// SourceInput pre-fills the source box; usually the saved source.
	SourceInput string
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Project Status</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
main{max-width:1200px;margin:0 auto;padding:24px}
form.source{display:flex;gap:8px;margin-bottom:12px}
form.source input{flex:1;padding:8px}
.feedback{padding:8px 12px;border-radius:6px;margin-bottom:12px;background:#e6f4ea}
.feedback.error{background:#fdecea;color:#8a1c1c}
.kpis{display:flex;gap:12px;margin-bottom:12px}
.kpi{background:#fff;border-radius:8px;padding:12px 16px;min-width:160px}
.kpi strong{display:block;font-size:28px}
.filters{display:flex;gap:8px;margin-bottom:12px}
table{width:100%;border-collapse:collapse;background:#fff}
th,td{padding:6px 10px;border-bottom:1px solid #e4e7eb;text-align:left}
.empty{padding:32px;text-align:center;color:#616e7c}
</style>
</head>
<body>
<main>
<h1>Project Status</h1>
`

const pageFoot = `</main>
</body>
</html>
`

// Dashboard renders the full page.
func Dashboard(p DashboardParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if err := DashboardBody(p).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageFoot)
		return err
	})
}

// DashboardBody renders the swappable #dashboard fragment. HTMX requests
// receive only this part.
func DashboardBody(p DashboardParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		v := p.View

		hw.raw(`<div id="dashboard">`)

		source := p.SourceInput
		if source == "" {
			source = v.Source
		}
		hw.raw(`<form class="source" hx-post="/api/load" hx-target="#dashboard" hx-swap="outerHTML">`)
		hw.printf(`<input type="text" name="source" placeholder="Google Sheets link or sheet ID" value="%s">`, esc(source))
		hw.raw(`<button type="submit">View Data</button>`)
		hw.raw(`<button type="button" hx-post="/api/reload" hx-target="#dashboard" hx-swap="outerHTML">Reload</button>`)
		hw.raw(`<button type="button" hx-post="/api/reset" hx-target="#dashboard" hx-swap="outerHTML">Reset</button>`)
		hw.raw(`</form>`)

		if v.Loading {
			hw.raw(`<div class="feedback">Loading…</div>`)
		}
		if msg := v.Feedback.Message; msg != "" {
			class := "feedback"
			if v.Feedback.IsError {
				class += " error"
			}
			hw.printf(`<div class="%s" role="status">%s</div>`, class, esc(msg))
		}

		hw.raw(`<div class="kpis">`)
		kpi(hw, "Total Projects", v.TotalProjects)
		kpi(hw, "Total Milestones", v.TotalMilestones)
		hw.raw(`</div>`)

		if v.Loaded {
			filters(hw, v)
		}

		if empty := v.EmptyText(); empty != "" {
			hw.printf(`<div class="empty">%s</div>`, esc(empty))
		} else {
			table(hw, v)
		}

		hw.raw(`</div>`)
		return hw.err
	})
}

// ErrorAlert renders an error fragment for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.printf(`<div class="feedback error" role="alert"><strong>%s</strong>`, esc(message))
		if action != "" {
			hw.printf(` %s`, esc(action))
		}
		if code != "" {
			hw.printf(` <small>(%s)</small>`, esc(code))
		}
		hw.raw(`</div>`)
		return hw.err
	})
}

func kpi(hw *htmlWriter, label string, n int) {
	hw.printf(`<div class="kpi"><span>%s</span><strong>%s</strong></div>`, esc(label), strconv.Itoa(n))
}

func filters(hw *htmlWriter, v service.View) {
	hw.raw(`<form class="filters" hx-get="/api/view" hx-target="#dashboard" hx-swap="outerHTML" ` +
		`hx-trigger="change, input delay:300ms from:input[name=search]">`)
	selectBox(hw, "system", "All systems", v.Options.Systems, v.Criteria.SystemEquals)
	selectBox(hw, "milestone", "All milestones", v.Options.Milestones, v.Criteria.MilestoneEquals)
	hw.printf(`<input type="search" name="search" placeholder="Search" value="%s">`, esc(v.Criteria.SearchSubstring))
	hw.raw(`<a href="/api/export?format=csv">Export CSV</a> <a href="/api/export?format=xlsx">Export XLSX</a>`)
	hw.raw(`</form>`)
}

func selectBox(hw *htmlWriter, name, allLabel string, options []string, selected string) {
	hw.printf(`<select name="%s"><option value="">%s</option>`, name, esc(allLabel))
	for _, opt := range options {
		attr := ""
		if opt == selected {
			attr = " selected"
		}
		hw.printf(`<option value="%s"%s>%s</option>`, esc(opt), attr, esc(opt))
	}
	hw.raw(`</select>`)
}

func table(hw *htmlWriter, v service.View) {
	hw.raw(`<table><thead><tr>`)
	for _, h := range v.Headers {
		hw.printf(`<th>%s</th>`, esc(h))
	}
	hw.raw(`</tr></thead><tbody>`)
	for _, row := range v.Rows {
		hw.raw(`<tr>`)
		for _, cell := range row {
			hw.printf(`<td>%s</td>`, esc(cell))
		}
		hw.raw(`</tr>`)
	}
	hw.raw(`</tbody></table>`)
}

// htmlWriter keeps the first write error so rendering code stays linear.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) printf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

func esc(s string) string {
	return templ.EscapeString(s)
}
