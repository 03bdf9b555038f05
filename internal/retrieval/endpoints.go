package retrieval

import (
	"net/url"
	"strings"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// Default upstream hosts.
const (
	DefaultDocsBaseURL      = "https://docs.google.com"
	DefaultOpenSheetBaseURL = "https://opensheet.elk.sh"

	// DefaultSheetName is used by the OpenSheet mirror when no tab is named.
	DefaultSheetName = "Sheet1"
)

// Endpoints holds the upstream base URLs. Tests point them at httptest servers.
type Endpoints struct {
	DocsBaseURL      string
	OpenSheetBaseURL string
}

// DefaultEndpoints returns the public upstream hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		DocsBaseURL:      DefaultDocsBaseURL,
		OpenSheetBaseURL: DefaultOpenSheetBaseURL,
	}
}

func (e Endpoints) docsBase() string {
	if e.DocsBaseURL == "" {
		return DefaultDocsBaseURL
	}
	return strings.TrimRight(e.DocsBaseURL, "/")
}

func (e Endpoints) openSheetBase() string {
	if e.OpenSheetBaseURL == "" {
		return DefaultOpenSheetBaseURL
	}
	return strings.TrimRight(e.OpenSheetBaseURL, "/")
}

// GVizURL builds the tabular-JSON query URL. responseHandler is only set for
// the script channel.
func (e Endpoints) GVizURL(ref core.SheetReference, responseHandler string) string {
	q := url.Values{}
	q.Set("tqx", "out:json")
	if responseHandler != "" {
		q.Set("responseHandler", responseHandler)
	}
	setSheetParams(q, ref)
	return e.docsBase() + "/spreadsheets/d/" + url.PathEscape(ref.SheetID) + "/gviz/tq?" + q.Encode()
}

// CSVExportURL builds the CSV export URL.
func (e Endpoints) CSVExportURL(ref core.SheetReference) string {
	q := url.Values{}
	q.Set("format", "csv")
	setSheetParams(q, ref)
	return e.docsBase() + "/spreadsheets/d/" + url.PathEscape(ref.SheetID) + "/export?" + q.Encode()
}

// OpenSheetURL builds the keyed-JSON mirror URL. The mirror addresses tabs by
// name only, so GID is ignored.
func (e Endpoints) OpenSheetURL(ref core.SheetReference) string {
	sheet := ref.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return e.openSheetBase() + "/" + url.PathEscape(ref.SheetID) + "/" + url.PathEscape(sheet)
}

func setSheetParams(q url.Values, ref core.SheetReference) {
	if ref.GID != "" {
		q.Set("gid", ref.GID)
	}
	if ref.SheetName != "" {
		q.Set("sheet", ref.SheetName)
	}
}
