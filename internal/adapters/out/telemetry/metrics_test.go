package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/boundaries/out"
)

func TestMetrics_RegistryCounters(t *testing.T) {
	m := NewMetrics()

	m.BlobCommitted("team/app", 100)
	m.BlobCommitted("team/app", 50)
	m.UploadFinished(out.UploadCommitted)
	m.UploadFinished(out.UploadFailed)
	m.UploadFinished(out.UploadFailed)
	m.ManifestPushed("team/app", "application/vnd.oci.image.manifest.v1+json")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blobsCommitted.WithLabelValues("team/app")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.blobBytes.WithLabelValues("team/app")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsFinished.WithLabelValues(out.UploadCommitted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploadsFinished.WithLabelValues(out.UploadFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.manifestsPushed.WithLabelValues("team/app", "application/vnd.oci.image.manifest.v1+json")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("blob", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("blob", http.MethodGet, http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `hangar_http_requests_total{code="200",method="GET",route="blob"} 1`), text)
	assert.True(t, strings.Contains(text, `hangar_http_requests_total{code="404",method="GET",route="blob"} 1`), text)
	assert.Contains(t, text, "hangar_http_request_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
