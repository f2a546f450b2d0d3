package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaja2302/Palm-counting-AI/internal/events"
)

func TestEventMetrics_PackLifecycle(t *testing.T) {
	t.Parallel()

	m, err := NewEventMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	for _, e := range []events.Event{
		{Name: events.AIPackProgress, Payload: events.PackProgressPayload{Downloaded: 400, Total: 1000, Percent: 40}},
		{Name: events.AIPackPaused},
		{Name: events.AIPackProgress, Payload: events.PackProgressPayload{Downloaded: 1000, Total: 1000, Percent: 100}},
		{Name: events.AIPackExtractProgress, Payload: events.PackExtractProgressPayload{Current: 50, Total: 120, Percent: 41}},
		{Name: events.AIPackDone},
	} {
		require.NoError(t, m.ProcessEvent(e))
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.packDownloads.WithLabelValues("paused")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.packDownloads.WithLabelValues("done")), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(m.packPercent), 0)
	assert.InDelta(t, 1000, testutil.ToFloat64(m.packBytes), 0)
	assert.InDelta(t, 50, testutil.ToFloat64(m.extractedEntries), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.eventsTotal.WithLabelValues(events.AIPackProgress)), 0)
}

func TestEventMetrics_Processing(t *testing.T) {
	t.Parallel()

	m, err := NewEventMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	require.NoError(t, m.ProcessEvent(events.Event{Name: events.ProcessingProgress, Payload: events.ProgressPayload{Status: "ok"}}))
	require.NoError(t, m.ProcessEvent(events.Event{Name: events.ProcessingProgress, Payload: events.ProgressPayload{Status: "failed"}}))
	require.NoError(t, m.ProcessEvent(events.Event{Name: events.ProcessingProgress, Payload: events.ProgressPayload{}}))
	require.NoError(t, m.ProcessEvent(events.Event{Name: events.ProcessingDone,
		Payload: events.DonePayload{Done: true, Successful: 1, Failed: 1, Total: 2, TotalAbnormal: 3, TotalNormal: 40}}))

	assert.InDelta(t, 1, testutil.ToFloat64(m.processingFiles.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.processingFiles.WithLabelValues("unknown")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.processingRuns), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.processingTrees.WithLabelValues("abnormal")), 0)
	assert.InDelta(t, 40, testutil.ToFloat64(m.processingTrees.WithLabelValues("normal")), 0)
}

func TestEventMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewEventMetrics(reg)
	require.NoError(t, err)
	_, err = NewEventMetrics(reg)
	require.Error(t, err)
}

func TestHTTPMetrics_Hooks(t *testing.T) {
	t.Parallel()

	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://pack.local/api/ai-pack/download", http.NoBody)
	m.BeforeRequest(req)
	m.AfterResponse(req, &http.Response{StatusCode: http.StatusPartialContent}, nil)

	failed := httptest.NewRequest(http.MethodGet, "http://pack.local/api/ai-pack/info", http.NoBody)
	m.BeforeRequest(failed)
	m.AfterResponse(failed, nil, assert.AnError)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/ai-pack/download", "206")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestErrors.WithLabelValues("/api/ai-pack/info")), 0)
	assert.Empty(t, m.starts)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnectTime))
	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	m.IncrementMessagesDelivered()
	m.IncrementErrors()
	m.IncrementReconnectAttempts()
	m.ObserveMessageSize(128)
	m.StartPublishTimer().ObserveDuration()

	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesDelivered), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReconnectAttempts), 0)
	assert.Equal(t, 7, testutil.CollectAndCount(m))
}
