package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type activePrincipals struct {
	counter prometheus.Gauge
	seen    map[string]struct{}
	mu      sync.Mutex
}

const activePrincipalsPerWeek = "active_principals_per_week"

var totalActivePrincipalsPerWeekMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: tracker,
		Name:      activePrincipalsPerWeek,
		Help:      "number of distinct principals that listed documents this week",
	},
)

var ActivePrincipalsPerWeek = &activePrincipals{
	counter: totalActivePrincipalsPerWeekMetric,
	seen:    make(map[string]struct{}),
}

func (v *activePrincipals) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seen = make(map[string]struct{})
	v.counter.Set(0)
}

// ResetEvery clears the gauge each interval until ctx is done.
func (v *activePrincipals) ResetEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.Reset()
		case <-ctx.Done():
			return
		}
	}
}

func (v *activePrincipals) Observe(principalID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.seen[principalID]; exists {
		return
	}

	v.seen[principalID] = struct{}{}
	v.counter.Inc()
}

func (v *activePrincipals) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
