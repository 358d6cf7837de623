package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBSentinel/internal/model"
)

func TestMetrics_ObserveCycle(t *testing.T) {
	m := New()
	at := time.Unix(1709649900, 0)

	m.ObserveCycle(string(model.OutcomeSignal), 2*time.Second, at)
	m.ObserveCycle(ResultError, time.Second, at)
	m.ObserveCycle(ResultSkipped, 0, at.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("skipped")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastCycle), "skipped cycles leave the timestamp alone")
	assert.Equal(t, 1, testutil.CollectAndCount(m.CycleDuration, "orb_cycle_duration_seconds"))
}

func TestMetrics_SignalsAndEvaluation(t *testing.T) {
	m := New()
	m.SignalNotified(model.Long)
	m.SignalNotified(model.Long)
	m.ObserveEvaluation(&model.Evaluation{Range: model.OpeningRange{Strength: 0.6}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Signals.WithLabelValues("long")))
	assert.Equal(t, 0.6, testutil.ToFloat64(m.OpeningStrength))
}

func TestServer_Routes(t *testing.T) {
	m := New()
	m.FetchErrors.Inc()
	srv := NewServer(":0", m, func() interface{} {
		return &model.CycleSummary{RunID: "r1", Outcome: model.OutcomeNoCandidate}
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	var got model.CycleSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, model.OutcomeNoCandidate, got.Outcome)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "orb_fetch_errors_total 1")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/status", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
