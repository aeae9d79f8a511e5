package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_agent_queries_total",
			Help: "Total number of queries answered, by result kind",
		},
		[]string{"kind"},
	)

	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_agent_query_failures_total",
			Help: "Total number of queries that failed, by pipeline stage",
		},
		[]string{"stage"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_agent_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

const (
	StageExtract  = "extract"
	StageValidate = "validate"
	StageWeather  = "weather"
)
