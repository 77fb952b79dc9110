package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/pathweb/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.IncrementNodesDiscovered()
			tracker.IncrementEdgesRecorded()
			tracker.IncrementPagesFetched()
		}()
	}
	wg.Wait()

	tracker.IncrementPagesFailed()
	tracker.IncrementPagesUnreadable()
	tracker.IncrementTasksOverDepth()
	tracker.IncrementLinksRejected()
	tracker.IncrementLinksRejected()

	snap := tracker.GetSnapshot()
	assert.Equal(t, 10, snap.NodesDiscovered)
	assert.Equal(t, 10, snap.EdgesRecorded)
	assert.Equal(t, 10, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, 1, snap.PagesUnreadable)
	assert.Equal(t, 1, snap.TasksOverDepth)
	assert.Equal(t, 2, snap.LinksRejected)
	assert.Contains(t, tracker.LogProgress(), "Nodes: 10 | Edges: 10")
}

func TestTrackerAverageFetchTime(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordFetchTime(100 * time.Millisecond)
	tracker.RecordFetchTime(300 * time.Millisecond)

	snap := tracker.GetSnapshot()
	assert.Equal(t, int64(400), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(200), snap.AvgFetchTimeMs)
}

func TestWriteToFile(t *testing.T) {
	tracker := NewTracker()
	tracker.IncrementNodesDiscovered()
	tracker.SetTerminationReason("capacity")

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, ""))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 1, got.NodesDiscovered)
	assert.Equal(t, "capacity", got.TerminationReason)
	assert.False(t, got.EndTime.IsZero())

	require.NoError(t, tracker.WriteToFile(path, "signal"))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "signal", got.TerminationReason)
}
