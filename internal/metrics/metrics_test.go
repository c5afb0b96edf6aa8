package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveCacheLookup(t *testing.T) {
	hits := CacheLookups.WithLabelValues("hit")
	misses := CacheLookups.WithLabelValues("miss")
	beforeHit := counterValue(t, hits)
	beforeMiss := counterValue(t, misses)

	ObserveCacheLookup(true)
	ObserveCacheLookup(true)
	ObserveCacheLookup(false)

	assert.Equal(t, beforeHit+2, counterValue(t, hits))
	assert.Equal(t, beforeMiss+1, counterValue(t, misses))
}

func TestCollectorsRegistered(t *testing.T) {
	QueriesTotal.WithLabelValues("exact", OutcomeAccepted).Inc()
	SegmentsPublished.Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["catalog_queries_total"])
	assert.True(t, names["catalog_segments_published_total"])
	assert.True(t, names["catalog_cache_entries"])
}
