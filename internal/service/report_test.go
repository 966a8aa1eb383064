package service_test

import (
	"bytes"
	"encoding/csv"

	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("report service", func() {
	var (
		srv    *service.ReportService
		result *service.DashboardResult
	)

	BeforeEach(func() {
		srv = service.NewReportService()
		result = &service.DashboardResult{
			Stats: model.DashboardStats{
				Total:                3,
				Completed:            1,
				InProgress:           1,
				Error:                1,
				SuccessRate:          33,
				AvgTurnaroundSeconds: 30,
				ByCategory: map[string]model.CategoryStats{
					"invoice":     {Total: 2, Done: 1, SuccessRate: 50, AvgTurnaroundSeconds: 30},
					"credit_note": {Total: 1},
				},
			},
			Stale: true,
		}
	})

	It("renders a csv report", func() {
		report, err := srv.GenerateReport(result, service.ReportOptions{Format: service.ReportFormatCSV, Scope: "mine", Window: "week"})
		Expect(err).To(BeNil())
		Expect(report.ContentType).To(Equal("text/csv"))
		Expect(report.Filename).To(MatchRegexp(`^extraction-report-\d{8}-\d{6}\.csv$`))

		reader := csv.NewReader(bytes.NewReader(report.Content))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		Expect(err).To(BeNil())

		Expect(rows).To(ContainElement([]string{"Scope", "mine"}))
		Expect(rows).To(ContainElement([]string{"Window", "week"}))
		Expect(rows).To(ContainElement([]string{"Total", "3"}))
		Expect(rows).To(ContainElement([]string{"Average turnaround (s)", "30.00"}))
		Expect(rows).To(ContainElement([]string{"invoice", "2", "1", "50", "30.00"}))
		Expect(rows).To(ContainElement([]string{"credit_note", "1", "0", "0", "0.00"}))
		Expect(rows).To(ContainElement(ContainElement("NOTICE")))
	})

	It("renders an xlsx report", func() {
		report, err := srv.GenerateReport(result, service.ReportOptions{Format: service.ReportFormatXLSX, Scope: "team", Window: "all"})
		Expect(err).To(BeNil())
		Expect(report.Filename).To(HaveSuffix(".xlsx"))

		f, err := excelize.OpenReader(bytes.NewReader(report.Content))
		Expect(err).To(BeNil())
		defer f.Close()

		Expect(f.GetSheetList()).To(Equal([]string{"Summary", "Categories"}))

		scope, err := f.GetCellValue("Summary", "B2")
		Expect(err).To(BeNil())
		Expect(scope).To(Equal("team"))

		rows, err := f.GetRows("Categories")
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(3))
		Expect(rows[1][0]).To(Equal("credit_note"))
		Expect(rows[2][0]).To(Equal("invoice"))
		Expect(rows[2][3]).To(Equal("50"))
	})

	It("refuses unknown formats", func() {
		_, err := srv.GenerateReport(result, service.ReportOptions{Format: "pdf"})
		var invalid *service.ErrInvalidInput
		Expect(err).To(BeAssignableToTypeOf(invalid))
	})
})
