package metrics_test

import (
	"testing"

	"github.com/mylxsw/festival-server/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBuildCounterVec(t *testing.T) {
	first := metrics.BuildCounterVec(metrics.Namespace, "test_counter_total", "test counter", []string{"kind"})
	second := metrics.BuildCounterVec(metrics.Namespace, "test_counter_total", "test counter", []string{"kind"})

	assert.Same(t, first, second)

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(first.WithLabelValues("a")))
}
