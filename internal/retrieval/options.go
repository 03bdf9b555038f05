package retrieval

import (
	"net/http"
	"time"
)

// DefaultTimeout is the per-request timeout for direct upstream calls.
const DefaultTimeout = 15 * time.Second

// Options configures the default provider chain.
type Options struct {
	Endpoints            Endpoints
	Timeout              time.Duration
	ScriptTimeout        time.Duration
	MaxBodyBytes         int64
	UserAgent            string
	DisableScriptChannel bool

	// Client overrides the HTTP client built from Timeout.
	Client *http.Client
}

// NewDefaultChain builds the four-provider chain in its fixed order:
// GViz JSON, GViz JSONP, CSV export, OpenSheet API.
func NewDefaultChain(opts Options) *Chain {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	fetcher := NewFetcher(opts.Timeout, opts.UserAgent, opts.MaxBodyBytes)
	if opts.Client != nil {
		fetcher.Client = opts.Client
	}

	script := NewGVizScriptProvider(opts.Endpoints, fetcher, opts.ScriptTimeout)
	script.Disabled = opts.DisableScriptChannel

	return NewChain(
		&GVizJSONProvider{Endpoints: opts.Endpoints, Fetcher: fetcher},
		script,
		&CSVExportProvider{Endpoints: opts.Endpoints, Fetcher: fetcher},
		&OpenSheetProvider{Endpoints: opts.Endpoints, Fetcher: fetcher},
	)
}
