package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active relay REST connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_rest_connections",
			Help: "Number of active relay REST connections",
		},
	)

	// active websocket subscribers
	ActiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_subscribers",
			Help: "Number of live envelope subscribers",
		},
	)

	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_response_time_milliseconds",
			Help:    "Relay REST response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by the relay REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_rest_requests_processed_total",
		Help: "The total number of processed relay REST requests",
	}, []string{"method", "endpoint", "status"})

	// Envelopes accepted by the relay
	EnvelopesAppendedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_envelopes_appended_total",
		Help: "The total number of envelopes appended to the relay log",
	})

	// Envelopes decrypted into the local cache by the sync engine
	EnvelopesDecryptedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_envelopes_decrypted_total",
		Help: "The total number of envelopes turned into local records",
	}, []string{"path"})

	// Envelopes skipped because they could not be decrypted
	EnvelopesUndecryptableTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_envelopes_undecryptable_total",
		Help: "The total number of envelopes skipped as undecryptable",
	}, []string{"path"})

	// Live pushes dropped because a subscriber fell behind
	PushesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_pushes_dropped_total",
		Help: "The total number of live pushes dropped for slow subscribers",
	})

	// Messages sent by the local participant
	MessagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_messages_sent_total",
		Help: "The total number of messages sent, by outcome",
	}, []string{"outcome"})

	// Latency of opening a conversation
	SyncLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_open_conversation_latency_milliseconds",
		Help:    "Latency of conversation synchronisation",
		Buckets: prometheus.LinearBuckets(1, 100, 10),
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

// InitMetrics registers all collectors with the default registry once.
func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(ActiveSubscribers)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(EnvelopesAppendedTotal)
		prometheus.MustRegister(EnvelopesDecryptedTotal)
		prometheus.MustRegister(EnvelopesUndecryptableTotal)
		prometheus.MustRegister(PushesDroppedTotal)
		prometheus.MustRegister(MessagesSentTotal)
		prometheus.MustRegister(SyncLatency)
	}
}

// ObserveSince records the milliseconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Milliseconds()))
}

// MetricsMiddleware counts and times every relay REST request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, endpoint, statusClass(c.Writer.Status())).Inc()
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, endpoint).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
