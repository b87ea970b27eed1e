package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wipeengine/internal/wipe"
)

func TestPercentRoundDerivedFromBytesThisRound(t *testing.T) {
	tr := NewTracker("/dev/test0", 1000, 1000, 1, 1)
	tr.Update("write", 1, 1, 250, 250)
	snap := tr.Snapshot()
	assert.InDelta(t, 25.0, snap.PercentRound, 0.001)
}

func TestETAIsNonNegativeWhenBytesExceedTotal(t *testing.T) {
	tr := NewTracker("/dev/test0", 1000, 1000, 1, 1)
	tr.Update("write", 1, 1, 2000, 1000)
	snap := tr.Snapshot()
	assert.GreaterOrEqual(t, snap.ETASeconds, 0.0)
}

func TestFinishMarksDoneAndResult(t *testing.T) {
	tr := NewTracker("/dev/test0", 1000, 1000, 1, 1)
	tr.Finish(wipe.ResultOK)
	snap := tr.Snapshot()
	assert.True(t, snap.Done)
	assert.Equal(t, wipe.ResultOK, snap.Result)
}

func TestRecordErrorsPropagatesToSnapshot(t *testing.T) {
	tr := NewTracker("/dev/test0", 1000, 1000, 1, 1)
	tr.RecordErrors(2, 5, 1)
	snap := tr.Snapshot()
	assert.Equal(t, int64(2), snap.PassErrors)
	assert.EqualValues(t, 5, snap.VerifyErrors)
	assert.Equal(t, int64(1), snap.FsyncErrors)
}

// TestAggregateSumsThroughputAndTakesMaxETA covers spec §4.G's global
// throughput/ETA definitions.
func TestAggregateSumsThroughputAndTakesMaxETA(t *testing.T) {
	snaps := []wipe.ProgressSnapshot{
		{ThroughputBps: 100, ETASeconds: 10},
		{ThroughputBps: 50, ETASeconds: 40},
	}
	throughput, eta := Aggregate(snaps)
	assert.Equal(t, 150.0, throughput)
	assert.Equal(t, 40.0, eta)
}

func TestRegistryAddAndGet(t *testing.T) {
	r := NewRegistry()
	tr := NewTracker("/dev/test0", 1000, 1000, 1, 1)
	r.Add(tr)

	got, ok := r.Get("/dev/test0")
	assert.True(t, ok)
	assert.Same(t, tr, got)

	_, ok = r.Get("/dev/missing")
	assert.False(t, ok)
}

func TestRegistrySnapshotsReturnsAllDevices(t *testing.T) {
	r := NewRegistry()
	r.Add(NewTracker("/dev/a", 100, 100, 1, 1))
	r.Add(NewTracker("/dev/b", 100, 100, 1, 1))

	snaps := r.Snapshots()
	assert.Len(t, snaps, 2)
}
