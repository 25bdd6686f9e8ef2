package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deview/domain/core"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&core.MissingFileError{Path: "x.csv"}, "missing"},
		{core.NewMalformedTableError("x.csv", 3, "p_value", "bad"), "malformed"},
		{fmt.Errorf("disk on fire"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LoadResult(tt.err))
	}
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveLoad(SourceUpload, 120, 5*time.Millisecond, nil)
	m.ObserveLoad(SourceUpload, 0, time.Millisecond, core.NewMalformedTableError("x", 2, "", "bad"))
	m.ObserveExcluded(3)
	m.ObserveExcluded(0)
	m.SetSessions(2)
	m.ObserveRequest("/", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(SourceUpload, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(SourceUpload, "malformed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.excluded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/", "200")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLoad(SourceFile, 1, time.Second, nil)
		m.ObserveExcluded(1)
		m.SetSessions(1)
		m.ObserveRequest("/", 200, time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveLoad(SourceFile, 10, time.Millisecond, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `deview_loads_total{result="ok",source="file"} 1`))
}
