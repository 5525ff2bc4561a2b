package metrics_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/source-weaver/internal/metrics"
	"github.com/alvmarrod/source-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_CountersAndAverage(t *testing.T) {
	tracker := metrics.NewTracker()
	tracker.Inc(metrics.NodesDiscovered)
	tracker.Inc(metrics.NodesDiscovered)
	tracker.Inc(metrics.NodesExpanded)
	tracker.Inc(metrics.EdgesRecorded)
	tracker.Inc(metrics.PagesFetched)
	tracker.Inc(metrics.PagesFailed)
	tracker.Inc(metrics.Counter(99))
	tracker.RecordFetchTime(100 * time.Millisecond)
	tracker.RecordFetchTime(300 * time.Millisecond)

	snap := tracker.GetSnapshot()
	assert.Equal(t, 2, snap.NodesDiscovered)
	assert.Equal(t, 1, snap.NodesExpanded)
	assert.Equal(t, 1, snap.EdgesRecorded)
	assert.Equal(t, 1, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, int64(400), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(200), snap.AvgFetchTimeMs)

	assert.Equal(t, "Nodes: 2 discovered, 1 expanded | Edges: 1 | Pages: 1 fetched, 1 failed (avg 200ms)", tracker.LogProgress())
}

func TestTracker_WriteToFile(t *testing.T) {
	tracker := metrics.NewTracker()
	tracker.SetRun("https://a.test/x", 2)
	tracker.Inc(metrics.NodesExpanded)

	path := filepath.Join(t.TempDir(), "metrics.log")
	require.NoError(t, tracker.WriteToFile(path, "completed"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var written storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &written))
	assert.Equal(t, "completed", written.TerminationReason)
	assert.Equal(t, "https://a.test/x", written.SeedURL)
	assert.Equal(t, 2, written.MaxLevel)
	assert.Equal(t, 1, written.NodesExpanded)
	assert.False(t, written.EndTime.Before(written.StartTime))
}
