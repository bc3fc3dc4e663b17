package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccbench "cc-bench"
)

func TestArchiveWriter(t *testing.T) {
	dir := t.TempDir()

	aw, err := NewArchiveWriter(dir, 2)
	require.NoError(t, err)

	for i := int32(0); i < 5; i++ {
		rec := ccbench.FlowRecord{
			Variant:        "TcpFast",
			FlowID:         i,
			RTTMs:          50 * (i + 1),
			ThroughputMbps: float64(i) + 0.5,
			DelayMs:        float64(i) * 10,
		}
		require.NoError(t, aw.WriteFlow(rec))
	}
	require.NoError(t, aw.Close())

	info, err := os.Stat(aw.FilePath())
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExporterMetrics(t *testing.T) {
	e := NewExporter()

	e.RecordRun("TcpFast", "completed", 12.5)
	e.RecordRun("TcpFast", "completed", 14.0)
	e.RecordRun("TcpLinuxReno", "timed out", 300.0)
	e.RecordParse("TcpFast", "perflow", 45, 2)

	assert.InDelta(t, 14.0, testutil.ToFloat64(e.runDuration.WithLabelValues("TcpFast")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(e.runOutcomes.WithLabelValues("TcpFast", "completed")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.runOutcomes.WithLabelValues("TcpLinuxReno", "timed out")), 1e-9)
	assert.InDelta(t, 45.0, testutil.ToFloat64(e.rowsParsed.WithLabelValues("TcpFast", "perflow")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(e.rowsSkipped.WithLabelValues("TcpFast", "perflow")), 1e-9)
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter()
	e.RecordRun("TcpFast", "completed", 1.0)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// fakeBucket answers path-style S3 PUT and HEAD requests, counting the
// uploads it receives per key.
type fakeBucket struct {
	mu   sync.Mutex
	puts map[string]int
}

func (fb *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	switch r.Method {
	case http.MethodPut:
		fb.puts[key]++
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if fb.puts[key] > 0 {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fb *fakeBucket) count(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.puts[key]
}

func newFakeStore(t *testing.T, endpoint string) *ObjectStore {
	t.Helper()
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &ObjectStore{client: client, bucket: "artifacts", endpoint: endpoint}
}

func TestUploadFileIfAbsent(t *testing.T) {
	fb := &fakeBucket{puts: make(map[string]int)}
	srv := httptest.NewServer(fb)
	defer srv.Close()
	store := newFakeStore(t, srv.URL)
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "throughput_comparison.png")
	require.NoError(t, os.WriteFile(file, []byte("png"), 0o644))

	ok, err := store.Exists(ctx, "run-1/throughput_comparison.png")
	require.NoError(t, err)
	assert.False(t, ok)

	key, uploaded, err := store.UploadFileIfAbsent(ctx, "run-1", file)
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, "run-1/throughput_comparison.png", key)

	// A second publish of the same artifact is a no-op.
	_, uploaded, err = store.UploadFileIfAbsent(ctx, "run-1", file)
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, 1, fb.count(key))
}

func TestExportersAreIndependent(t *testing.T) {
	// Two exporters must not collide on a shared registry.
	a := NewExporter()
	b := NewExporter()
	a.RecordRun("X", "completed", 1)
	assert.Zero(t, testutil.ToFloat64(b.runOutcomes.WithLabelValues("X", "completed")))
}
