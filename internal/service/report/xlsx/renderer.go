package xlsx

import (
	"time"

	"github.com/docuflow/extraction-tracker/internal/service/report/types"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	categoriesSheet = "Categories"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatXLSX
}

func (r *Renderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r *Renderer) Render(data *types.ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, errors.Wrap(err, "failed to name summary sheet")
	}
	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return nil, errors.Wrap(err, "failed to create categories sheet")
	}

	if err := r.writeSummary(f, data); err != nil {
		return nil, err
	}
	if err := r.writeCategories(f, data); err != nil {
		return nil, err
	}

	index, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "xlsx write")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeSummary(f *excelize.File, data *types.ReportData) error {
	rows := [][]any{
		{"Generated", data.Generated.UTC().Format(time.RFC3339)},
		{"Scope", data.Options.Scope},
		{"Window", data.Options.Window},
		{"Stale", data.Stale},
		{},
		{"Metric", "Value"},
	}
	rows = append(rows, data.SummaryRows()...)

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write summary row %d", i+1)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 26)
	_ = f.SetColWidth(summarySheet, "B", "B", 24)
	return nil
}

func (r *Renderer) writeCategories(f *excelize.File, data *types.ReportData) error {
	header := make([]any, 0, len(types.CategoryHeader))
	for _, h := range types.CategoryHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(categoriesSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write categories header")
	}

	for i, name := range data.Categories() {
		c := data.Stats.ByCategory[name]
		row := []any{name, c.Total, c.Done, c.SuccessRate, c.AvgTurnaroundSeconds}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(categoriesSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write category %s", name)
		}
	}
	_ = f.SetColWidth(categoriesSheet, "A", "A", 22)
	_ = f.SetColWidth(categoriesSheet, "B", "E", 18)
	return nil
}
