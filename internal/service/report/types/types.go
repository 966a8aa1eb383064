package types

import (
	"sort"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/thoas/go-funk"
)

type ReportRenderer interface {
	Render(data *ReportData) ([]byte, error)
	SupportedFormat() ReportFormat
	ContentType() string
}

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
)

type ReportOptions struct {
	Format ReportFormat
	Scope  string
	Window string
}

type ReportData struct {
	Stats     model.DashboardStats
	Stale     bool
	Options   ReportOptions
	Generated time.Time
}

// Categories returns the category names sorted alphabetically.
func (d *ReportData) Categories() []string {
	if len(d.Stats.ByCategory) == 0 {
		return []string{}
	}
	categories := funk.Keys(d.Stats.ByCategory).([]string)
	sort.Strings(categories)
	return categories
}

// SummaryRows is the overall block shared by every renderer.
func (d *ReportData) SummaryRows() [][]any {
	return [][]any{
		{"Total", d.Stats.Total},
		{"Completed", d.Stats.Completed},
		{"In progress", d.Stats.InProgress},
		{"Error", d.Stats.Error},
		{"Success rate (%)", d.Stats.SuccessRate},
		{"Average turnaround (s)", d.Stats.AvgTurnaroundSeconds},
	}
}

var CategoryHeader = []string{"Category", "Total", "Done", "Success rate (%)", "Average turnaround (s)"}
