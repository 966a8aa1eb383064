package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type StatisticsReader interface {
	Statistics(ctx context.Context) (model.DocumentStatistics, error)
}

type documentStatsCollector struct {
	reader          StatisticsReader
	totalDocuments  *prometheus.Desc
	totalByState    *prometheus.Desc
	totalByCategory *prometheus.Desc
}

func NewDocumentStatsCollector(r StatisticsReader) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_%s", tracker, name)
	}

	return &documentStatsCollector{
		reader: r,
		totalDocuments: prometheus.NewDesc(
			fqName("documents_total"),
			"Total number of tracked documents.",
			nil,
			prometheus.Labels{},
		),
		totalByState: prometheus.NewDesc(
			fqName("documents_by_state"),
			"Tracked documents by processing state.",
			[]string{"state"},
			prometheus.Labels{},
		),
		totalByCategory: prometheus.NewDesc(
			fqName("documents_by_category"),
			"Tracked documents by category.",
			[]string{"category"},
			prometheus.Labels{},
		),
	}
}

// RegisterDocumentStatsCollector adds the document gauges to the default registry.
func RegisterDocumentStatsCollector(r StatisticsReader) error {
	return prometheus.Register(NewDocumentStatsCollector(r))
}

func (c *documentStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalDocuments
	ch <- c.totalByState
	ch <- c.totalByCategory
}

// Collect implements Collector.
func (c *documentStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.reader.Statistics(ctx)
	if err != nil {
		zap.S().Named("document_collector").Errorf("failed to collect document statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalDocuments, prometheus.GaugeValue, float64(stats.Total))

	for state, total := range stats.ByState {
		ch <- prometheus.MustNewConstMetric(c.totalByState, prometheus.GaugeValue, float64(total), string(state))
	}

	for category, total := range stats.ByCategory {
		ch <- prometheus.MustNewConstMetric(c.totalByCategory, prometheus.GaugeValue, float64(total), category)
	}
}
