package epinet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorderAppendsEvents(t *testing.T) {
	r := NewMemoryRecorder()
	require.NoError(t, r.RecordEvent(EventRecord{Step: 1, Kind: "move", AgentID: 5, State: 2}))
	require.NoError(t, r.RecordEvent(EventRecord{Step: 2, Kind: "infection", AgentID: 9, State: 0}))
	require.NoError(t, r.Close())

	assert.Len(t, r.Events, 2)
	assert.Equal(t, "move", r.Events[0].Kind)
	assert.Equal(t, 9, r.Events[1].AgentID)
}

func TestCSVRecorderWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	r, err := NewCSVRecorder(path)
	require.NoError(t, err)

	require.NoError(t, r.RecordEvent(EventRecord{Step: 1, Clock: 0.5, Kind: "move", AgentID: 3, State: 1}))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "step,clock,kind,agent_id,state")
	assert.Contains(t, content, "1,0.5,move,3,1")
}

func TestNewCSVRecorderFailsOnBadPath(t *testing.T) {
	_, err := NewCSVRecorder(filepath.Join(t.TempDir(), "nonexistent-dir", "events.csv"))
	assert.Error(t, err)
}

func TestMemorySeriesRecorderAccumulates(t *testing.T) {
	r := NewMemorySeriesRecorder()
	require.NoError(t, r.RecordCounts(CompartmentCounts{Clock: 0.1, Counts: []int{9, 1, 0}}))
	require.NoError(t, r.RecordSnapshot(Snapshot{Clock: 1.0, States: []int32{-1, 0, -1}}))
	require.NoError(t, r.RecordFinal(Snapshot{Clock: 5.0, States: []int32{2, 2, 2}}))
	require.NoError(t, r.Close())

	assert.Len(t, r.Counts, 1)
	assert.Equal(t, []int{9, 1, 0}, r.Counts[0].Counts)
	assert.Len(t, r.Snapshots, 1)
	assert.Equal(t, []int32{2, 2, 2}, r.Final.States)
}

func TestCSVSeriesRecorderWritesHeadersAndRows(t *testing.T) {
	dir := t.TempDir()
	countsPath := filepath.Join(dir, "counts.csv")
	snapPath := filepath.Join(dir, "snapshots.csv")
	finalPath := filepath.Join(dir, "final.csv")

	r, err := NewCSVSeriesRecorder(countsPath, snapPath, finalPath, 3, 2)
	require.NoError(t, err)

	require.NoError(t, r.RecordCounts(CompartmentCounts{Clock: 0.1, Counts: []int{1, 1, 0}}))
	require.NoError(t, r.RecordSnapshot(Snapshot{Clock: 0.1, States: []int32{0, -1}}))
	require.NoError(t, r.RecordFinal(Snapshot{Clock: 2.0, States: []int32{2, 2}}))
	require.NoError(t, r.Close())

	counts, err := os.ReadFile(countsPath)
	require.NoError(t, err)
	assert.Contains(t, string(counts), "t,count_0,count_1,count_2")
	assert.Contains(t, string(counts), "0.1,1,1,0")

	snaps, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Contains(t, string(snaps), "t,agent_0,agent_1")
	assert.Contains(t, string(snaps), "0.1,0,-1")

	final, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Contains(t, string(final), "2,2")
}
