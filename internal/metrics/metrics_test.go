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

func TestMetrics_ObserveEvent(t *testing.T) {
	m := New(nil)

	m.ObserveEvent("MESSAGE_RECEIVED", "ticket_sent", 120*time.Millisecond)
	m.ObserveEvent("MESSAGE_RECEIVED", "ticket_sent", 80*time.Millisecond)
	m.ObserveEvent("MEMBER_JOINED", "welcomed", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsTotal.WithLabelValues("MESSAGE_RECEIVED", "ticket_sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsTotal.WithLabelValues("MEMBER_JOINED", "welcomed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.eventDuration))
}

func TestMetrics_Handler(t *testing.T) {
	depth := 3
	m := New(func() int { return depth })
	m.ObserveEvent("MEMBER_JOINED", "welcomed", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `express_bot_events_total{kind="MEMBER_JOINED",outcome="welcomed"} 1`)
	assert.Contains(t, body, "express_bot_worker_queue_depth 3")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
