package retrieval

import (
	"context"
	"errors"
	"strings"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/core"
)

// LabelCSVExport identifies the CSV export strategy.
const LabelCSVExport = "CSV export"

var errCSVEmpty = errors.New("CSV response was empty")

// CSVExportProvider downloads the sheet's CSV export.
type CSVExportProvider struct {
	Endpoints Endpoints
	Fetcher   *Fetcher
}

func (p *CSVExportProvider) Label() string { return LabelCSVExport }

func (p *CSVExportProvider) Fetch(ctx context.Context, ref core.SheetReference) (core.Dataset, error) {
	text, err := p.Fetcher.GetText(ctx, p.Endpoints.CSVExportURL(ref))
	if err != nil {
		return core.Dataset{}, err
	}
	return csvToDataset(text)
}

// csvToDataset takes the first parsed row as headers and aligns the rest to it.
func csvToDataset(text string) (core.Dataset, error) {
	records := core.ParseCSV(text)
	if len(records) == 0 {
		return core.Dataset{}, errCSVEmpty
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]core.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, core.NormalizeRow(rec, len(headers)))
	}

	return core.Dataset{Headers: headers, Rows: rows}, nil
}
