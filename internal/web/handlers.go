package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/export"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/logging"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/store"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/web/templates"
)

// maxSourceBody caps the load request body.
const maxSourceBody = 64 << 10

// viewResponse is the JSON body of every dashboard-changing endpoint. Error
// is set when the operation failed; View still reflects the session state.
type viewResponse struct {
	View  service.View   `json:"view"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type historyResponse struct {
	Records []store.LoadRecord `json:"records"`
}

type resolveResponse struct {
	Input     string              `json:"input"`
	Reference core.SheetReference `json:"reference"`
	Valid     bool                `json:"valid"`
	URLs      map[string]string   `json:"urls,omitempty"`
}

// handleDashboard renders the main dashboard page. A fresh session with a
// saved source loads it before rendering.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionFromContext(ctx)

	v := s.service.Current(id)
	saved, err := s.service.SavedSource(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to read saved source", "session_id", id, "error", err)
	}

	if !v.Loaded && !v.Loading && v.Feedback.Message == "" && saved != "" {
		v, _ = s.service.Reload(ctx, id)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(templates.DashboardParams{View: v, SourceInput: saved}).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// handleLoad resolves the submitted source and loads it.
//
// Accepts {"source": "..."} as JSON or a "source" form field.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	source, err := readSource(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	id := sessionFromContext(r.Context())
	v, err := s.service.Load(r.Context(), id, source, service.LoadOptions{})
	s.respondView(w, r, v, err)
}

// handleReload loads the session's saved source.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	id := sessionFromContext(r.Context())
	v, err := s.service.Reload(r.Context(), id)
	s.respondView(w, r, v, err)
}

// handleReset clears the saved source, filters and dataset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := sessionFromContext(r.Context())
	v, err := s.service.Reset(r.Context(), id)
	s.respondView(w, r, v, err)
}

// handleView applies system/milestone/search criteria. Without any of those
// parameters it returns the current view unchanged.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := sessionFromContext(r.Context())
	q := r.URL.Query()

	var v service.View
	if q.Has("system") || q.Has("milestone") || q.Has("search") {
		v = s.service.Filter(id, core.FilterCriteria{
			SystemEquals:    q.Get("system"),
			MilestoneEquals: q.Get("milestone"),
			SearchSubstring: q.Get("search"),
		})
	} else {
		v = s.service.Current(id)
	}
	s.respondView(w, r, v, nil)
}

// handleExport downloads the visible rows as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	headers, rows, err := s.service.Visible(sessionFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, headers, rows); err != nil {
		s.respondError(w, r, fmt.Errorf("export %s: %w", format, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": format.Filename("projects")}))
	_, _ = w.Write(buf.Bytes())
}

// handleHistory lists the session's recent load attempts, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.History(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.LoadRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records})
}

// handleResolve shows how a source string is parsed and which upstream URLs
// the chain would try.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("source")
	ref := core.ResolveReference(input)

	resp := resolveResponse{Input: input, Reference: ref, Valid: !ref.IsZero()}
	if resp.Valid {
		e := s.opts.Endpoints
		resp.URLs = map[string]string{
			retrieval.LabelGVizJSON:   e.GVizURL(ref, ""),
			retrieval.LabelGVizScript: e.GVizURL(ref, "callback"),
			retrieval.LabelCSVExport:  e.CSVExportURL(ref),
			retrieval.LabelOpenSheet:  e.OpenSheetURL(ref),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth reports liveness plus load slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
		"loads":    s.service.LimiterStatus(),
	})
}

// respondView renders the dashboard fragment for HTMX and JSON otherwise.
// HTMX always gets 200 so the feedback banner is swapped in.
func (s *Server) respondView(w http.ResponseWriter, r *http.Request, v service.View, err error) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if rerr := templates.DashboardBody(templates.DashboardParams{View: v}).Render(r.Context(), w); rerr != nil {
			logging.FromContext(r.Context()).Error("render dashboard", "error", rerr)
		}
		return
	}

	status := statusFor(err)
	if err != nil {
		logging.FromContext(r.Context()).Info("operation failed",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, viewResponse{View: v, Error: newErrorResponse(err)})
}

// readSource extracts the source string from a JSON or form body.
func readSource(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSourceBody)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		return body.Source, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("invalid form body: %w", err)
	}
	return r.FormValue("source"), nil
}
