package service

import (
	"fmt"
	"time"

	"github.com/docuflow/extraction-tracker/internal/service/report/csv"
	"github.com/docuflow/extraction-tracker/internal/service/report/types"
	"github.com/docuflow/extraction-tracker/internal/service/report/xlsx"
)

type ReportFormat = types.ReportFormat
type ReportOptions = types.ReportOptions

const (
	ReportFormatCSV  = types.ReportFormatCSV
	ReportFormatXLSX = types.ReportFormatXLSX
)

type Report struct {
	Content     []byte
	ContentType string
	Filename    string
}

type ReportService struct {
	renderers map[types.ReportFormat]types.ReportRenderer
	now       func() time.Time
}

func NewReportService() *ReportService {
	service := &ReportService{
		renderers: make(map[types.ReportFormat]types.ReportRenderer),
		now:       time.Now,
	}

	for _, r := range []types.ReportRenderer{csv.NewRenderer(), xlsx.NewRenderer()} {
		service.renderers[r.SupportedFormat()] = r
	}

	return service
}

func (r *ReportService) GenerateReport(result *DashboardResult, options types.ReportOptions) (*Report, error) {
	renderer, exists := r.renderers[options.Format]
	if !exists {
		return nil, NewErrInvalidInput(fmt.Sprintf("unsupported report format: %s", options.Format))
	}

	generated := r.now().UTC()
	content, err := renderer.Render(&types.ReportData{
		Stats:     result.Stats,
		Stale:     result.Stale,
		Options:   options,
		Generated: generated,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", options.Format, err)
	}

	return &Report{
		Content:     content,
		ContentType: renderer.ContentType(),
		Filename:    fmt.Sprintf("extraction-report-%s.%s", generated.Format("20060102-150405"), options.Format),
	}, nil
}
