package debug

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDebugServer(t *testing.T) {
	_, err := NewDebugServer("")
	assert.Error(t, err)

	s, err := NewDebugServer("127.0.0.1:0")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", s.Addr)
}

func TestRouterServesMetrics(t *testing.T) {
	LinkCreations().WithLabelValues("created").Inc()

	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linkdb_link_creations_total")
}

func TestRouterRecoversPanics(t *testing.T) {
	router := NewRouter()
	router.HandlerFunc(http.MethodGet, "/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoundTripperPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))
	defer upstream.Close()

	client := &http.Client{Transport: NewRoundTripper(nil, nil)}
	resp, err := client.Get(upstream.URL + "/path")
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "hi", string(b))

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(OutgoingRequests().WithLabelValues(u.Host, "/path", "418")))
}

func TestRoundTripperCountsFailedRequests(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	host := upstream.Listener.Addr().String()
	upstream.Close()

	client := &http.Client{Transport: NewRoundTripper(nil, func(r *http.Request) string { return "op" })}
	_, err := client.Get("http://" + host + "/")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(OutgoingRequests().WithLabelValues(host, "op", OutgoingErrorCode)))
}
