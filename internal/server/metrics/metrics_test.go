package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.APICall("ingest", "ok")
	m.APICall("ingest", "ok")
	m.APICall("fetch", "not_found")
	m.ImagesCascaded(3)
	m.StorageUp(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("ingest", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("fetch", "not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cascaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageUp))

	m.StorageUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.storageUp))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObjectStored("image", 2048)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `gemdeck_object_size_bytes_count{kind="image"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.APICall("x", "y")
	r.ObjectStored("docs", 1)
	r.ImagesCascaded(1)
	r.StorageUp(true)
}
