package slide

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	log, hook := test.NewNullLogger()
	LogSink{Log: log}.DiagramFailed("s2-diagram-1", "Parse error on line 2")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "s2-diagram-1", entry.Data["diagram"])
	assert.Equal(t, "Parse error on line 2", entry.Data["error"])
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, b}.DiagramFailed("x-1", "boom")
	assert.Equal(t, []failure{{id: "x-1", message: "boom"}}, a.failures)
	assert.Equal(t, a.failures, b.failures)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	s := m.Sink("s2")
	s.DiagramFailed("s2-diagram-1", "boom")
	s.DiagramFailed("s2-diagram-2", "boom")
	m.Observe("s2", Report{Discovered: 3, Rendered: 1, Failed: 2})
	m.Observe("s3", Report{Discovered: 1, Rendered: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("s2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rendered.WithLabelValues("s2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rendered.WithLabelValues("s3")))
}

func TestNilSinkLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	tree := mustTree(t, fence("mermaid", "flowchart TD\nA -->>> B"))

	NewHydrator(&fakeEngine{}, NewIDGenerator("n"), nil, log).Hydrate(context.Background(), tree)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "n-1", hook.LastEntry().Data["diagram"])
}
