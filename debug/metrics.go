package debug

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "linkdb"

type Metrics struct {
	incomingRequests         *prometheus.CounterVec
	incomingRequestDurations *prometheus.HistogramVec
	outgoingRequests         *prometheus.CounterVec
	outgoingRequestDurations *prometheus.HistogramVec
	linkCreations            *prometheus.CounterVec
	linkCreateDurations      prometheus.Histogram
	deniedShortCodes         prometheus.Counter
	redirects                *prometheus.CounterVec
}

var globalMetrics *Metrics

func init() {
	// Disable the default built-in Go metrics. They're useful but expensive to store in Prometheus.
	prometheus.Unregister(collectors.NewGoCollector())

	globalMetrics = &Metrics{
		incomingRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "incoming_requests_total",
		}, []string{"code", "path"}),
		incomingRequestDurations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "incoming_request_duration_seconds",
		}, []string{"path"}),
		outgoingRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "outgoing_requests_total",
		}, []string{"host", "path", "code"}),
		outgoingRequestDurations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "outgoing_request_duration_seconds",
		}, []string{"host", "path", "code"}),
		linkCreations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "link_creations_total",
			Help:      "total number of link create operations by result (created, invalid, collision, error)",
		}, []string{"result"}),
		linkCreateDurations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "link_create_duration_seconds",
		}),
		deniedShortCodes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "denied_short_codes_total",
			Help:      "total number of generated short codes that were denied because they matched denylist",
		}),
		redirects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "redirects_total",
		}, []string{"code"}),
	}
}

func IncomingRequests() *prometheus.CounterVec {
	return globalMetrics.incomingRequests
}

func OutgoingRequests() *prometheus.CounterVec {
	return globalMetrics.outgoingRequests
}

func IncomingRequestDurations() *prometheus.HistogramVec {
	return globalMetrics.incomingRequestDurations
}

func LinkCreations() *prometheus.CounterVec {
	return globalMetrics.linkCreations
}

func LinkCreateDurations() prometheus.Histogram {
	return globalMetrics.linkCreateDurations
}

func DeniedShortCodes() prometheus.Counter {
	return globalMetrics.deniedShortCodes
}

func Redirects() *prometheus.CounterVec {
	return globalMetrics.redirects
}
