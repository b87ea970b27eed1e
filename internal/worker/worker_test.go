package worker

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wipeengine/internal/method"
	"wipeengine/internal/prng"
	"wipeengine/internal/wipe"
	"wipeengine/pkg/entropy"
)

const testDeviceSize = 256 * 1024
const testSectorSize = 512

// memDevice is an in-memory executor.BlockDevice for worker tests.
type memDevice struct {
	mu   sync.Mutex
	data []byte
}

func newMemDevice(size int64, fill byte) *memDevice {
	d := &memDevice{data: make([]byte, size)}
	for i := range d.data {
		d.data[i] = fill
	}
	return d
}

func (d *memDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(p, d.data[off:]), nil
}

func (d *memDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(d.data[off:], p), nil
}

func (d *memDevice) Sync() error { return nil }

func (d *memDevice) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.data)), nil
}

// recordingSink collects every published event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []wipe.Event
}

func (s *recordingSink) Publish(e wipe.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func newTestEntropySource(t *testing.T) *entropy.Source {
	t.Helper()
	src, err := entropy.Open()
	require.NoError(t, err)
	return src
}

// TestZeroMethodErasesWholeDeviceCleanly covers end-to-end scenario 1:
// method=zero, rounds=1 over a device pre-filled with 0xAA.
func TestZeroMethodErasesWholeDeviceCleanly(t *testing.T) {
	dev := newMemDevice(testDeviceSize, 0xAA)
	eng := method.NewEngine()
	m, err := eng.Expand(wipe.Config{Method: "zero", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast, Sync: 1})
	require.NoError(t, err)

	sink := &recordingSink{}
	w := New("/dev/test0", dev, testSectorSize, testDeviceSize, m, prng.AESCTR, 1, newTestEntropySource(t), sink)

	handle := w.Start(context.Background())
	dc := handle.Wait()

	assert.Equal(t, wipe.ResultOK, dc.Result)
	assert.EqualValues(t, 0, dc.PassErrors)
	assert.EqualValues(t, 0, dc.VerifyErrors)
	assert.EqualValues(t, 0, dc.FsyncErrors)
	assert.True(t, bytes.Equal(dev.data, bytes.Repeat([]byte{0x00}, testDeviceSize)))
	assert.Contains(t, sink.kinds(), "device-finished")
}

// TestVerifyZeroReportsSingleMismatch covers end-to-end scenario 4.
func TestVerifyZeroReportsSingleMismatch(t *testing.T) {
	dev := newMemDevice(testDeviceSize, 0x00)
	dev.data[512] = 0x01
	before := make([]byte, len(dev.data))
	copy(before, dev.data)

	eng := method.NewEngine()
	m, err := eng.Expand(wipe.Config{Method: "verify_zero", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyNone})
	require.NoError(t, err)

	w := New("/dev/test0", dev, testSectorSize, testDeviceSize, m, prng.AESCTR, 0, newTestEntropySource(t), nil)
	dc := w.Start(context.Background()).Wait()

	assert.EqualValues(t, 1, dc.VerifyErrors)
	assert.Equal(t, wipe.ResultVerifyFailed, dc.Result)
	assert.True(t, bytes.Equal(before, dev.data), "verify pass must not modify the device")
}

// TestIS5EnhancedVerifiesPRNGPassRegardlessOfPolicy covers end-to-end
// scenario 6.
func TestIS5EnhancedVerifiesPRNGPassRegardlessOfPolicy(t *testing.T) {
	dev := newMemDevice(testDeviceSize, 0xAA)
	eng := method.NewEngine()
	m, err := eng.Expand(wipe.Config{Method: "is5enh", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyNone})
	require.NoError(t, err)

	w := New("/dev/test0", dev, testSectorSize, testDeviceSize, m, prng.AESCTR, 0, newTestEntropySource(t), nil)
	dc := w.Start(context.Background()).Wait()

	assert.Equal(t, wipe.ResultOK, dc.Result)
	assert.EqualValues(t, 0, dc.VerifyErrors)
	assert.Equal(t, 3, dc.PassTotal)
}

// TestCancellationStopsWorkerPromptly covers end-to-end scenario 5.
func TestCancellationStopsWorkerPromptly(t *testing.T) {
	dev := newMemDevice(4*testDeviceSize, 0xAA)
	eng := method.NewEngine()
	m, err := eng.Expand(wipe.Config{Method: "random", PRNG: "aes-ctr", Rounds: 1, Verify: wipe.VerifyLast})
	require.NoError(t, err)

	w := New("/dev/test0", dev, testSectorSize, 4*testDeviceSize, m, prng.AESCTR, 0, newTestEntropySource(t), nil)
	handle := w.Start(context.Background())

	time.Sleep(time.Millisecond)
	w.Cancel()

	dc := handle.Wait()
	assert.Equal(t, wipe.ResultCancelled, dc.Result)
}

func TestDODShortRunsExactlyThreePasses(t *testing.T) {
	dev := newMemDevice(testDeviceSize, 0xAA)
	eng := method.NewEngine()
	m, err := eng.Expand(wipe.Config{Method: "dodshort", PRNG: "isaac", Rounds: 1, Verify: wipe.VerifyLast})
	require.NoError(t, err)
	assert.Equal(t, 3, len(m.Passes))

	w := New("/dev/test0", dev, testSectorSize, testDeviceSize, m, prng.ISAAC, 0, newTestEntropySource(t), nil)
	dc := w.Start(context.Background()).Wait()

	assert.Equal(t, 3, dc.PassTotal)
	assert.Equal(t, wipe.ResultOK, dc.Result)
}
