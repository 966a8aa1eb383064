package model

import (
	"time"
)

type CategoryStats struct {
	Total                int
	Done                 int
	SuccessRate          int
	AvgTurnaroundSeconds float64
}

type DashboardStats struct {
	Total       int
	Completed   int
	InProgress  int
	Error       int
	SuccessRate int
	// AvgTurnaroundSeconds is the mean over every document reporting both external timestamps.
	AvgTurnaroundSeconds float64
	ByCategory           map[string]CategoryStats
}

type turnaroundAcc struct {
	totalMs int64
	samples int64
}

func (t *turnaroundAcc) add(d time.Duration) {
	t.totalMs += d.Milliseconds()
	t.samples++
}

func (t turnaroundAcc) avgSeconds() float64 {
	if t.samples == 0 {
		return 0
	}
	// centiseconds, rounded half up
	centi := roundHalfUp(t.totalMs, t.samples*10)
	return float64(centi) / 100
}

// NewDashboardStats aggregates a filtered document set. The result does not depend on the order of docs.
func NewDashboardStats(docs []Document) DashboardStats {
	stats := DashboardStats{ByCategory: make(map[string]CategoryStats)}
	turnaroundByCategory := make(map[string]*turnaroundAcc)
	overall := &turnaroundAcc{}

	for _, d := range docs {
		category := d.CategoryOrUnknown()
		cs := stats.ByCategory[category]
		cs.Total++

		switch d.State {
		case DocumentStateDone:
			stats.Completed++
			cs.Done++
		case DocumentStateFailed:
			stats.Error++
		default:
			stats.InProgress++
		}

		if dur, ok := d.Turnaround(); ok {
			acc, found := turnaroundByCategory[category]
			if !found {
				acc = &turnaroundAcc{}
				turnaroundByCategory[category] = acc
			}
			acc.add(dur)
			overall.add(dur)
		}

		stats.ByCategory[category] = cs
	}

	for category, cs := range stats.ByCategory {
		cs.SuccessRate = percent(cs.Done, cs.Total)
		if acc, found := turnaroundByCategory[category]; found {
			cs.AvgTurnaroundSeconds = acc.avgSeconds()
		}
		stats.ByCategory[category] = cs
	}

	stats.Total = stats.Completed + stats.InProgress + stats.Error
	stats.SuccessRate = percent(stats.Completed, stats.Total)
	stats.AvgTurnaroundSeconds = overall.avgSeconds()

	return stats
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(roundHalfUp(int64(part)*100, int64(total)))
}

// roundHalfUp returns num/den rounded to the nearest integer, ties toward positive infinity. den must be positive.
func roundHalfUp(num, den int64) int64 {
	if num >= 0 {
		return (2*num + den) / (2 * den)
	}
	return -((2*(-num) + den - 1) / (2 * den))
}
