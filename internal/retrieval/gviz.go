package retrieval

import (
	"context"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// LabelGVizJSON identifies the direct tabular-JSON strategy.
const LabelGVizJSON = "GViz JSON"

// GVizJSONProvider requests the wrapped tabular-JSON representation directly.
type GVizJSONProvider struct {
	Endpoints Endpoints
	Fetcher   *Fetcher
}

func (p *GVizJSONProvider) Label() string { return LabelGVizJSON }

func (p *GVizJSONProvider) Fetch(ctx context.Context, ref core.SheetReference) (core.Dataset, error) {
	text, err := p.Fetcher.GetText(ctx, p.Endpoints.GVizURL(ref, ""))
	if err != nil {
		return core.Dataset{}, err
	}
	return core.DecodeTabularPayload(text)
}
