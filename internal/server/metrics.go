package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	requests  *prometheus.CounterVec
	duration  prometheus.Histogram
	anomalies *prometheus.CounterVec
	tasks     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaderos",
			Name:      "schedule_requests_total",
			Help:      "Schedule requests by outcome code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaderos",
			Name:      "schedule_compute_seconds",
			Help:      "Time to load and compute one strategy.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaderos",
			Name:      "dependency_anomalies_total",
			Help:      "Dependencies dropped while building a graph, by kind.",
		}, []string{"kind"}),
		tasks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaderos",
			Name:      "schedule_tasks",
			Help:      "Tasks per computed strategy.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),
	}
	reg.MustRegister(
		m.requests,
		m.duration,
		m.anomalies,
		m.tasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
