package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

const sheetID = "1AbCdEfGhIjKlMnOpQrStUvWxYz_-0123"

const gvizBody = `/*O_o*/
google.visualization.Query.setResponse({"version":"0.6","status":"ok","table":{
"cols":[{"id":"A","label":"System"},{"id":"B","label":"Next Milestone"}],
"rows":[{"c":[{"v":"Alpha"},{"v":"GA"}]},{"c":[{"v":"Beta"},{"v":5,"f":"=B1"}]}]}});`

const gvizEnvelope = `{"version":"0.6","status":"ok","table":{"cols":[{"label":"System"}],"rows":[{"c":[{"v":"Alpha"}]}]}}`

// upstream fakes the docs host and the OpenSheet mirror on one server.
// A nil handler answers 404.
type upstream struct {
	gviz      http.HandlerFunc
	jsonp     http.HandlerFunc
	csv       http.HandlerFunc
	openSheet http.HandlerFunc
}

func (u upstream) start(t *testing.T) *httptest.Server {
	t.Helper()

	or404 := func(h http.HandlerFunc) http.HandlerFunc {
		if h == nil {
			return http.NotFound
		}
		return h
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /spreadsheets/d/{id}/gviz/tq", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("responseHandler") != "" {
			or404(u.jsonp)(w, r)
			return
		}
		or404(u.gviz)(w, r)
	})
	mux.HandleFunc("GET /spreadsheets/d/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		or404(u.csv)(w, r)
	})
	mux.HandleFunc("GET /{id}/{sheet}", func(w http.ResponseWriter, r *http.Request) {
		or404(u.openSheet)(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func endpointsFor(srv *httptest.Server) Endpoints {
	return Endpoints{DocsBaseURL: srv.URL, OpenSheetBaseURL: srv.URL}
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

// ----------------------------------------------------------------------------
// Chain
// ----------------------------------------------------------------------------

func TestChain_FallsThroughToOpenSheet(t *testing.T) {
	srv := upstream{
		gviz:      text("<html>sign in</html>"),
		jsonp:     text("<html>sign in</html>"),
		csv:       text(""),
		openSheet: text(`[{"System":"Alpha","Developer":"Jane"},{"System":"Beta","Developer":"Bob"}]`),
	}.start(t)

	chain := NewDefaultChain(Options{Endpoints: endpointsFor(srv)})
	res, err := chain.Load(context.Background(), core.SheetReference{SheetID: sheetID})
	require.NoError(t, err)

	assert.Equal(t, LabelOpenSheet, res.Source)
	assert.Equal(t, []string{"System", "Developer"}, res.Dataset.Headers)
	assert.Equal(t, []core.Row{{"Alpha", "Jane"}, {"Beta", "Bob"}}, res.Dataset.Rows)
}

func TestChain_AllStrategiesFail(t *testing.T) {
	srv := upstream{
		gviz: status(http.StatusUnauthorized),
		csv:  status(http.StatusInternalServerError),
	}.start(t)

	chain := NewDefaultChain(Options{Endpoints: endpointsFor(srv)})
	_, err := chain.Load(context.Background(), core.SheetReference{SheetID: sheetID})
	require.Error(t, err)

	var composite *core.CompositeRetrievalError
	require.ErrorAs(t, err, &composite)
	assert.Equal(t, []string{LabelGVizJSON, LabelGVizScript, LabelCSVExport, LabelOpenSheet}, composite.Strategies())

	assert.Equal(t,
		"GViz JSON: HTTP 401 | GViz JSONP: JSONP script failed to load | CSV export: HTTP 500 | OpenSheet API: HTTP 404",
		err.Error(),
	)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	var csvCalls int
	srv := upstream{
		gviz: text(gvizBody),
		csv: func(w http.ResponseWriter, r *http.Request) {
			csvCalls++
			_, _ = w.Write([]byte("System\nAlpha\n"))
		},
	}.start(t)

	chain := NewDefaultChain(Options{Endpoints: endpointsFor(srv)})
	res, err := chain.Load(context.Background(), core.SheetReference{SheetID: sheetID})
	require.NoError(t, err)

	assert.Equal(t, LabelGVizJSON, res.Source)
	assert.Equal(t, []core.Row{{"Alpha", "GA"}, {"Beta", "=B1"}}, res.Dataset.Rows)
	assert.Zero(t, csvCalls, "later strategies must not run after a success")
}

func TestChain_EmptyDatasetIsFatal(t *testing.T) {
	var openSheetCalls int
	srv := upstream{
		gviz: text(`setResponse({"table":{"cols":[],"rows":[]}})`),
		openSheet: func(w http.ResponseWriter, r *http.Request) {
			openSheetCalls++
			_, _ = w.Write([]byte(`[{"a":"b"}]`))
		},
	}.start(t)

	chain := NewDefaultChain(Options{Endpoints: endpointsFor(srv)})
	res, err := chain.Load(context.Background(), core.SheetReference{SheetID: sheetID})

	require.ErrorIs(t, err, core.ErrEmptyDataset)
	assert.Equal(t, LabelGVizJSON, res.Source)
	assert.True(t, res.Dataset.IsEmpty())
	assert.Zero(t, openSheetCalls)
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(&GVizJSONProvider{Fetcher: NewFetcher(time.Second, "", 0)})
	_, err := chain.Load(ctx, core.SheetReference{SheetID: sheetID})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_Labels(t *testing.T) {
	chain := NewDefaultChain(Options{})
	assert.Equal(t, []string{"GViz JSON", "GViz JSONP", "CSV export", "OpenSheet API"}, chain.Labels())
}

// ----------------------------------------------------------------------------
// Providers
// ----------------------------------------------------------------------------

func TestCSVExportProvider(t *testing.T) {
	var gotQuery string
	srv := upstream{
		csv: func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte("\xEF\xBB\xBF System , Developer \r\nAlpha\r\n\r\nBeta,Bob,extra\r\n"))
		},
	}.start(t)

	p := &CSVExportProvider{Endpoints: endpointsFor(srv), Fetcher: NewFetcher(time.Second, "", 0)}
	ds, err := p.Fetch(context.Background(), core.SheetReference{SheetID: sheetID, GID: "7"})
	require.NoError(t, err)

	assert.Equal(t, "format=csv&gid=7", gotQuery)
	assert.Equal(t, []string{"System", "Developer"}, ds.Headers)
	assert.Equal(t, []core.Row{{"Alpha", ""}, {"Beta", "Bob"}}, ds.Rows)
}

func TestCSVExportProvider_Empty(t *testing.T) {
	srv := upstream{csv: text(" , \n")}.start(t)

	p := &CSVExportProvider{Endpoints: endpointsFor(srv), Fetcher: NewFetcher(time.Second, "", 0)}
	_, err := p.Fetch(context.Background(), core.SheetReference{SheetID: sheetID})
	assert.EqualError(t, err, "CSV response was empty")
}

func TestOpenSheetProvider(t *testing.T) {
	var gotPath string
	srv := upstream{
		openSheet: func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			_, _ = w.Write([]byte(`[
				{"Zeta":"z1","Alpha":1.5,"Flag":true},
				{"Alpha":"a2","Zeta":null},
				{"Extra":"ignored","Flag":false}
			]`))
		},
	}.start(t)

	p := &OpenSheetProvider{Endpoints: endpointsFor(srv), Fetcher: NewFetcher(time.Second, "", 0)}
	ds, err := p.Fetch(context.Background(), core.SheetReference{SheetID: sheetID})
	require.NoError(t, err)

	assert.Equal(t, "/"+sheetID+"/Sheet1", gotPath)
	assert.Equal(t, []string{"Zeta", "Alpha", "Flag"}, ds.Headers)
	assert.Equal(t, []core.Row{
		{"z1", "1.5", "true"},
		{"", "a2", ""},
		{"", "", "false"},
	}, ds.Rows)
}

func TestKeyedRowsToDataset_RepeatedKeys(t *testing.T) {
	ds, err := keyedRowsToDataset(`[{"x":1,"x":2,"y":3},{"y":"b","x":"a","x":"c"}]`)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, ds.Headers)
	assert.Equal(t, []core.Row{{"2", "3"}, {"c", "b"}}, ds.Rows)
}

func TestOpenSheetProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "empty array", body: `[]`, wantErr: "OpenSheet response was empty"},
		{name: "object body", body: `{"error":"not found"}`, wantErr: "OpenSheet response was not a JSON array"},
		{name: "invalid json", body: `[{"a":`, wantErr: "OpenSheet response was not a JSON array"},
		{name: "array of strings", body: `["a","b"]`, wantErr: "OpenSheet response was not an array of objects"},
		{name: "nested arrays", body: `[["a"],["b"]]`, wantErr: "OpenSheet response was not an array of objects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := upstream{openSheet: text(tt.body)}.start(t)
			p := &OpenSheetProvider{Endpoints: endpointsFor(srv), Fetcher: NewFetcher(time.Second, "", 0)}
			_, err := p.Fetch(context.Background(), core.SheetReference{SheetID: sheetID})
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestGVizJSONProvider_DecodeFailure(t *testing.T) {
	srv := upstream{gviz: text(`setResponse({"status":"error"})`)}.start(t)

	p := &GVizJSONProvider{Endpoints: endpointsFor(srv), Fetcher: NewFetcher(time.Second, "", 0)}
	_, err := p.Fetch(context.Background(), core.SheetReference{SheetID: sheetID})
	assert.ErrorIs(t, err, core.ErrNoTableData)
}

// ----------------------------------------------------------------------------
// Fetcher
// ----------------------------------------------------------------------------

func TestFetcher_BodyLimit(t *testing.T) {
	srv := upstream{gviz: text(strings.Repeat("x", 64))}.start(t)

	f := NewFetcher(time.Second, "projstat-test", 32)
	_, err := f.GetText(context.Background(), endpointsFor(srv).GVizURL(core.SheetReference{SheetID: sheetID}, ""))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetcher_UserAgentAndSanitize(t *testing.T) {
	var gotUA string
	srv := upstream{
		gviz: func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.UserAgent()
			_, _ = w.Write([]byte("ok\xff"))
		},
	}.start(t)

	f := NewFetcher(time.Second, "projstat-test", 0)
	got, err := f.GetText(context.Background(), endpointsFor(srv).GVizURL(core.SheetReference{SheetID: sheetID}, ""))
	require.NoError(t, err)

	assert.Equal(t, "projstat-test", gotUA)
	assert.Equal(t, "ok\uFFFD", got)
}

// ----------------------------------------------------------------------------
// Endpoints
// ----------------------------------------------------------------------------

func TestEndpoints(t *testing.T) {
	e := DefaultEndpoints()
	ref := core.SheetReference{SheetID: "abc", GID: "5", SheetName: "My Tab"}

	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc/gviz/tq?gid=5&sheet=My+Tab&tqx=out%3Ajson",
		e.GVizURL(ref, ""),
	)
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc/gviz/tq?gid=5&responseHandler=cb_1&sheet=My+Tab&tqx=out%3Ajson",
		e.GVizURL(ref, "cb_1"),
	)
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc/export?format=csv&gid=5&sheet=My+Tab",
		e.CSVExportURL(ref),
	)
	assert.Equal(t, "https://opensheet.elk.sh/abc/My%20Tab", e.OpenSheetURL(ref))
	assert.Equal(t, "https://opensheet.elk.sh/abc/Sheet1", e.OpenSheetURL(core.SheetReference{SheetID: "abc"}))

	custom := Endpoints{DocsBaseURL: "http://127.0.0.1:9000/", OpenSheetBaseURL: "http://mirror/"}
	assert.Equal(t, "http://127.0.0.1:9000/spreadsheets/d/abc/export?format=csv", custom.CSVExportURL(core.SheetReference{SheetID: "abc"}))
	assert.Equal(t, "http://mirror/abc/Sheet1", custom.OpenSheetURL(core.SheetReference{SheetID: "abc"}))
}
