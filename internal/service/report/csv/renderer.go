package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/docuflow/extraction-tracker/internal/service/report/types"
	"github.com/pkg/errors"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatCSV
}

func (r *Renderer) ContentType() string {
	return "text/csv"
}

func (r *Renderer) Render(data *types.ReportData) ([]byte, error) {
	var csvRows [][]string

	csvRows = append(csvRows, []string{"DOCUMENT EXTRACTION REPORT"})
	csvRows = append(csvRows, []string{fmt.Sprintf("Generated: %s", data.Generated.UTC().Format(time.RFC3339))})
	csvRows = append(csvRows, []string{"Scope", data.Options.Scope})
	csvRows = append(csvRows, []string{"Window", data.Options.Window})
	if data.Stale {
		csvRows = append(csvRows, []string{"NOTICE", "extraction service unreachable, figures reflect the last known state"})
	}
	csvRows = append(csvRows, []string{""})

	csvRows = r.addSummary(csvRows, data)
	csvRows = r.addCategories(csvRows, data)

	return r.convertRowsToCSV(csvRows)
}

func (r *Renderer) addSummary(csvRows [][]string, data *types.ReportData) [][]string {
	csvRows = append(csvRows, []string{"SUMMARY"})
	csvRows = append(csvRows, []string{"Metric", "Value"})
	for _, row := range data.SummaryRows() {
		csvRows = append(csvRows, []string{row[0].(string), formatValue(row[1])})
	}
	return append(csvRows, []string{""})
}

func (r *Renderer) addCategories(csvRows [][]string, data *types.ReportData) [][]string {
	csvRows = append(csvRows, []string{"CATEGORIES"})
	csvRows = append(csvRows, types.CategoryHeader)
	for _, name := range data.Categories() {
		c := data.Stats.ByCategory[name]
		csvRows = append(csvRows, []string{
			name,
			strconv.Itoa(c.Total),
			strconv.Itoa(c.Done),
			strconv.Itoa(c.SuccessRate),
			formatValue(c.AvgTurnaroundSeconds),
		})
	}
	return csvRows
}

func (r *Renderer) convertRowsToCSV(csvRows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range csvRows {
		if err := writer.Write(row); err != nil {
			return nil, errors.Wrap(err, "failed to write csv row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to flush csv")
	}
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
