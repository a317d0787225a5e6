package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(DecryptFailuresTotal.WithLabelValues("Nombre_enc"))
	DecryptFailuresTotal.WithLabelValues("Nombre_enc").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DecryptFailuresTotal.WithLabelValues("Nombre_enc")))

	before = testutil.ToFloat64(OrdersCreatedTotal)
	OrdersCreatedTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(OrdersCreatedTotal))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	LoginAttemptsTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "labkeeper_login_attempts_total")
}

func TestServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, logging.Discard()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
