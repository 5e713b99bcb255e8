package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncMessages("text")
	m.IncMessages("text")
	m.IncMessages("image")
	m.IncDropped()
	m.SetIdentities(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("text")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("image")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	require.Equal(t, 3.0, testutil.ToFloat64(m.identities))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncReads()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "groupchat_read_receipts_total 1")
}
