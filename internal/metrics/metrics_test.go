package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("Counts requests by route and code", func(t *testing.T) {
		m := New()

		m.ObserveRequest("/matches/{id}", 200, 10*time.Millisecond)
		m.ObserveRequest("/matches/{id}", 200, 20*time.Millisecond)
		m.ObserveRequest("/matches/{id}", 0, time.Millisecond)

		assert.InDelta(t, 2, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/matches/{id}", "200")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/matches/{id}", "0")), 0)
	})

	t.Run("Counts search attempts, sync ticks and finished matches", func(t *testing.T) {
		m := New()

		m.SearchAttempt("waiting")
		m.SearchAttempt("waiting")
		m.SyncTick("ok")
		m.MatchFinished("win")

		assert.InDelta(t, 2, testutil.ToFloat64(m.searchAttempts.WithLabelValues("waiting")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.syncTicks.WithLabelValues("ok")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.matchesFinished.WithLabelValues("win")), 0)
	})

	t.Run("Handler exposes the registry", func(t *testing.T) {
		m := New()
		m.SearchAttempt("matched")

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), `tictactoe_client_search_attempts_total{result="matched"} 1`))
	})
}
