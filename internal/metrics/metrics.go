package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrainTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecaster_train_total",
			Help: "Total number of training runs",
		},
		[]string{"status"},
	)

	PredictTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecaster_predict_total",
			Help: "Total number of prediction requests",
		},
		[]string{"status"},
	)

	TrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forecaster_train_duration_seconds",
			Help:    "Training run duration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	PredictDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "forecaster_predict_duration_seconds",
			Help: "Prediction request duration",
		},
	)
)
