package supervisor

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wipeengine/internal/wipe"
	"wipeengine/pkg/entropy"
)

const simDeviceSize = 1 << 20 // 1 MiB, per spec §8's end-to-end scenarios

// simDevice is an in-memory executor.BlockDevice standing in for the
// "simulated 1 MiB block device" of spec §8's end-to-end scenarios.
type simDevice struct {
	mu   sync.Mutex
	data []byte
}

func newSimDevice(fill byte) *simDevice {
	d := &simDevice{data: make([]byte, simDeviceSize)}
	for i := range d.data {
		d.data[i] = fill
	}
	return d
}

func (d *simDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(p, d.data[off:]), nil
}

func (d *simDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(d.data[off:], p), nil
}

func (d *simDevice) Sync() error { return nil }

func (d *simDevice) Size() (int64, error) { return simDeviceSize, nil }

func newTestEntropySource(t *testing.T) *entropy.Source {
	t.Helper()
	src, err := entropy.Open()
	require.NoError(t, err)
	return src
}

// TestRunZeroMethodProducesCleanSummary covers end-to-end scenario 1 at the
// Supervisor layer: method=zero over a pre-filled device.
func TestRunZeroMethodProducesCleanSummary(t *testing.T) {
	dev := newSimDevice(0xAA)
	cfg := wipe.Config{Method: "zero", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast, Sync: 1}

	sup := New(cfg, newTestEntropySource(t), NoopEventSink())
	summaries, exitCode := sup.Run(context.Background(), []DeviceTarget{
		{DevicePath: "/dev/sim0", Device: dev, SizeBytes: simDeviceSize, SectorSize: 512},
	})

	require.Equal(t, ExitOK, exitCode)
	require.Len(t, summaries, 1)
	assert.Equal(t, wipe.ResultOK, summaries[0].Status)
	assert.True(t, bytes.Equal(dev.data, bytes.Repeat([]byte{0x00}, simDeviceSize)))
}

// TestRunWithNoTargetsIsInvalidConfig covers the structural-failure branch
// of spec §6's exit codes.
func TestRunWithNoTargetsIsInvalidConfig(t *testing.T) {
	sup := New(wipe.Config{Method: "zero", PRNG: "aes-ctr", Rounds: 1}, newTestEntropySource(t), NoopEventSink())
	_, exitCode := sup.Run(context.Background(), nil)
	assert.Equal(t, ExitInvalidConfig, exitCode)
}

// TestRunWithUnknownPRNGIsInvalidConfig covers config validation before any
// worker starts.
func TestRunWithUnknownPRNGIsInvalidConfig(t *testing.T) {
	dev := newSimDevice(0xAA)
	sup := New(wipe.Config{Method: "zero", PRNG: "not-a-prng", Rounds: 1}, newTestEntropySource(t), NoopEventSink())
	_, exitCode := sup.Run(context.Background(), []DeviceTarget{
		{DevicePath: "/dev/sim0", Device: dev, SizeBytes: simDeviceSize, SectorSize: 512},
	})
	assert.Equal(t, ExitInvalidConfig, exitCode)
}

// TestMultipleDevicesRunConcurrently covers the Supervisor's one-worker-
// per-device fan-out.
func TestMultipleDevicesRunConcurrently(t *testing.T) {
	devA := newSimDevice(0xAA)
	devB := newSimDevice(0xAA)
	cfg := wipe.Config{Method: "one", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast}

	sup := New(cfg, newTestEntropySource(t), NoopEventSink())
	summaries, exitCode := sup.Run(context.Background(), []DeviceTarget{
		{DevicePath: "/dev/sim0", Device: devA, SizeBytes: simDeviceSize, SectorSize: 512},
		{DevicePath: "/dev/sim1", Device: devB, SizeBytes: simDeviceSize, SectorSize: 512},
	})

	require.Equal(t, ExitOK, exitCode)
	require.Len(t, summaries, 2)
	assert.True(t, bytes.Equal(devA.data, bytes.Repeat([]byte{0xFF}, simDeviceSize)))
	assert.True(t, bytes.Equal(devB.data, bytes.Repeat([]byte{0xFF}, simDeviceSize)))
}

// TestCancelStopsInFlightWorkers exercises the Supervisor's shared
// cancellation path (spec §4.H / §9's shared atomic-flag design note).
func TestCancelStopsInFlightWorkers(t *testing.T) {
	dev := newSimDevice(0xAA)
	cfg := wipe.Config{Method: "random", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast}

	sup := New(cfg, newTestEntropySource(t), NoopEventSink())

	var summaries []wipe.DeviceSummary
	var exitCode int
	done := make(chan struct{})
	go func() {
		summaries, exitCode = sup.Run(context.Background(), []DeviceTarget{
			{DevicePath: "/dev/sim0", Device: dev, SizeBytes: simDeviceSize, SectorSize: 512},
		})
		close(done)
	}()

	time.Sleep(time.Millisecond)
	sup.Cancel()
	<-done

	require.Len(t, summaries, 1)
	assert.Equal(t, wipe.ResultCancelled, summaries[0].Status)
	assert.Equal(t, ExitWorkerErrors, exitCode)
}

func TestSummaryTableHasHeaderAndOneRowPerDevice(t *testing.T) {
	summaries := []wipe.DeviceSummary{
		{DevicePath: "/dev/sim0", Method: "zero", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast, Status: wipe.ResultOK},
	}
	table := SummaryTable(summaries)
	assert.Contains(t, table, "device | method | prng")
	assert.Contains(t, table, "/dev/sim0")
}
