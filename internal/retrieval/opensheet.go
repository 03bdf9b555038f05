package retrieval

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// LabelOpenSheet identifies the keyed-JSON mirror strategy.
const LabelOpenSheet = "OpenSheet API"

var (
	errOpenSheetEmpty    = errors.New("OpenSheet response was empty")
	errOpenSheetNotArray = errors.New("OpenSheet response was not a JSON array")
	errOpenSheetNotRows  = errors.New("OpenSheet response was not an array of objects")
)

// OpenSheetProvider reads the sheet from a third-party mirror that serves
// each row as a JSON object keyed by header.
type OpenSheetProvider struct {
	Endpoints Endpoints
	Fetcher   *Fetcher
}

func (p *OpenSheetProvider) Label() string { return LabelOpenSheet }

func (p *OpenSheetProvider) Fetch(ctx context.Context, ref core.SheetReference) (core.Dataset, error) {
	text, err := p.Fetcher.GetText(ctx, p.Endpoints.OpenSheetURL(ref))
	if err != nil {
		return core.Dataset{}, err
	}
	return keyedRowsToDataset(text)
}

// keyedRowsToDataset converts an array of objects. Headers are the first
// object's distinct keys in first-seen order; later objects are read by those
// keys, and a key repeated within an object keeps its last value.
func keyedRowsToDataset(text string) (core.Dataset, error) {
	if !gjson.Valid(text) {
		return core.Dataset{}, errOpenSheetNotArray
	}
	doc := gjson.Parse(text)
	if !doc.IsArray() {
		return core.Dataset{}, errOpenSheetNotArray
	}

	items := doc.Array()
	if len(items) == 0 {
		return core.Dataset{}, errOpenSheetEmpty
	}

	if !items[0].IsObject() {
		return core.Dataset{}, errOpenSheetNotRows
	}

	var headers []string
	seen := make(map[string]bool)
	items[0].ForEach(func(key, _ gjson.Result) bool {
		if k := key.String(); !seen[k] {
			seen[k] = true
			headers = append(headers, k)
		}
		return true
	})

	rows := make([]core.Row, len(items))
	for i, item := range items {
		values := make(map[string]string, len(headers))
		item.ForEach(func(key, value gjson.Result) bool {
			values[key.String()] = core.ValueString(value)
			return true
		})

		row := make(core.Row, len(headers))
		for j, h := range headers {
			row[j] = values[h]
		}
		rows[i] = row
	}

	return core.Dataset{Headers: headers, Rows: rows}, nil
}
