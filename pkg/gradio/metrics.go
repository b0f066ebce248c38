package gradio

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests issued by the client",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of client HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "stream_messages_total",
			Help:      "Queue stream messages decoded, by kind",
		},
		[]string{"kind"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "predictions_total",
			Help:      "Finished predictions, by outcome",
		},
		[]string{"outcome"},
	)

	uploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "upload_bytes_total",
			Help:      "Bytes uploaded as file inputs",
		},
	)

	wakeupPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gradio",
			Subsystem: "client",
			Name:      "wakeup_polls_total",
			Help:      "Space status polls during wake-up, by observed stage",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, streamMessagesTotal, predictionsTotal, uploadBytesTotal, wakeupPollsTotal)
}

// observeRequest records one finished request. status 0 means transport failure.
func observeRequest(endpoint string, status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(endpoint, label).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
