package debug

import (
	"net/http"
	"strconv"
	"time"
)

// RoundTripperPathFunc returns the path label of an outgoing request.
type RoundTripperPathFunc func(r *http.Request) string

func DefaultRoundTripperPathFunc(r *http.Request) string {
	return r.URL.Path
}

// OutgoingErrorCode labels outgoing requests that got no response at all.
const OutgoingErrorCode = "error"

type instrumentedTransport struct {
	next     http.RoundTripper
	pathFunc RoundTripperPathFunc
}

// NewRoundTripper wraps next (http.DefaultTransport when nil) to count and
// time outgoing requests, e.g. the DynamoDB and SNS calls made by the AWS SDK.
// Requests failing without a response are labelled OutgoingErrorCode.
func NewRoundTripper(next http.RoundTripper, pathFunc RoundTripperPathFunc) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if pathFunc == nil {
		pathFunc = DefaultRoundTripperPathFunc
	}
	return &instrumentedTransport{next: next, pathFunc: pathFunc}
}

func (t *instrumentedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(r)

	code := OutgoingErrorCode
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	host, path := r.URL.Host, t.pathFunc(r)
	globalMetrics.outgoingRequests.WithLabelValues(host, path, code).Inc()
	globalMetrics.outgoingRequestDurations.WithLabelValues(host, path, code).Observe(time.Since(start).Seconds())

	return resp, err
}
