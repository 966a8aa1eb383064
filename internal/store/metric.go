package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	opRegex     = regexp.MustCompile(`^\s*(\w+)`)
	dbOpLatency *prometheus.HistogramVec
	dbOpTotal   *prometheus.CounterVec
	dbOpErrors  *prometheus.CounterVec
)

// metricInterceptor records latency and error counts of every driver call made through the instrumented pgx driver.
type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	dbOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "db_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Subsystem: "extraction_tracker",
		Buckets:   []float64{5, 25, 100, 300, 1000, 5000},
	},
		[]string{"op", "method"},
	)
	dbOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_total",
		Help:      "Number of database operations",
		Subsystem: "extraction_tracker",
	},
		[]string{"op"},
	)
	dbOpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_errors_total",
		Help:      "Number of failed database operations",
		Subsystem: "extraction_tracker",
	},
		[]string{"op"},
	)

	prometheus.MustRegister(dbOpLatency, dbOpTotal, dbOpErrors)
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	mi.measure("conn-begin-tx", "begin", start, err)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnPrepareContext(ctx context.Context, conn driver.ConnPrepareContext, query string) (context.Context, driver.Stmt, error) {
	start := time.Now()
	stmt, err := conn.PrepareContext(ctx, query)
	mi.measure("conn-prepare-context", sqlMethod(query, "prepare"), start, err)
	return ctx, stmt, err
}

func (mi *metricInterceptor) ConnPing(ctx context.Context, conn driver.Pinger) error {
	start := time.Now()
	err := conn.Ping(ctx)
	mi.measure("conn-ping", "ping", start, err)
	return err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	mi.measure("conn-exec-context", sqlMethod(query, "exec"), start, err)
	return res, err
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	mi.measure("conn-query-context", sqlMethod(query, "query"), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) ConnectorConnect(ctx context.Context, conn driver.Connector) (driver.Conn, error) {
	start := time.Now()
	c, err := conn.Connect(ctx)
	mi.measure("connector-connect", "connect", start, err)
	return c, err
}

func (mi *metricInterceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, args)
	mi.measure("stmt-exec-context", sqlMethod(query, "exec"), start, err)
	return res, err
}

func (mi *metricInterceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, args)
	mi.measure("stmt-query-context", sqlMethod(query, "query"), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Commit()
	mi.measure("tx-commit", "commit", start, err)
	return err
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Rollback()
	mi.measure("tx-rollback", "rollback", start, err)
	return err
}

func (mi *metricInterceptor) measure(op, method string, start time.Time, err error) {
	dbOpTotal.With(prometheus.Labels{"op": op}).Inc()
	if err != nil && err != driver.ErrSkip {
		dbOpErrors.With(prometheus.Labels{"op": op}).Inc()
	}
	dbOpLatency.With(prometheus.Labels{"op": op, "method": method}).Observe(float64(time.Since(start).Milliseconds()))
}

// sqlMethod returns the leading SQL verb of query in lower case.
func sqlMethod(query, fallback string) string {
	matches := opRegex.FindStringSubmatch(query)
	if len(matches) < 2 {
		return fallback
	}
	return strings.ToLower(matches[1])
}
