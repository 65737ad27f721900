package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// supervisorCollector exports porthole_supervisors{kind} computed at scrape
// time, so the gauge never drifts from the registry.
type supervisorCollector struct {
	counter SupervisorCounter
	desc    *prometheus.Desc
}

func newSupervisorCollector(counter SupervisorCounter) *supervisorCollector {
	return &supervisorCollector{
		counter: counter,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "supervisors"),
			"Number of registered supervisors by kind",
			[]string{"kind"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *supervisorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *supervisorCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, n := range c.counter.CountByKind() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), string(kind))
	}
}
