package remote

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/atomic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // Test modifies global Prometheus metric state
func TestRequestMetrics(t *testing.T) {
	requestsTotal.Reset()
	requestDuration.Reset()

	status := atomic.NewInt64(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	client := NewClient(Config{}, WithBaseURL(srv.URL))

	require.NoError(t, client.SetFan(t.Context(), true))

	status.Store(http.StatusNotFound)
	require.Error(t, client.SetFan(t.Context(), false))

	assert.InDelta(t, 1, testutil.ToFloat64(requestsTotal.WithLabelValues("set_fan", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(requestsTotal.WithLabelValues("set_fan", "misconfigured")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(requestDuration))
}
