package executor

import (
	"errors"
	"sync"
)

// errRejectedSubSectorWrite simulates a device that refuses a write whose
// length isn't a multiple of its sector size.
var errRejectedSubSectorWrite = errors.New("spy: device rejects sub-sector write")

// spyDevice is an in-memory BlockDevice that records write coverage and can
// be configured to inject errors and short writes for a given test.
type spyDevice struct {
	mu       sync.Mutex
	data     []byte
	coverage []int // coverage[i] counts the writes that landed on byte i

	shortWrites           int // number of upcoming writes to cut to half length
	failSyncOnce          bool
	rejectNonSectorWrites bool
	sectorSize            int64
	syncCalls             int
}

func newSpyDevice(size int64) *spyDevice {
	return &spyDevice{data: make([]byte, size), coverage: make([]int, size)}
}

func (d *spyDevice) cover(off int64, n int) {
	for i := 0; i < n; i++ {
		d.coverage[off+int64(i)]++
	}
}

func (d *spyDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *spyDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rejectNonSectorWrites && d.sectorSize > 0 && int64(len(p))%d.sectorSize != 0 {
		return 0, errRejectedSubSectorWrite
	}
	if d.shortWrites > 0 {
		d.shortWrites--
		half := len(p) / 2
		copy(d.data[off:], p[:half])
		d.cover(off, half)
		return half, nil
	}
	n := copy(d.data[off:], p)
	d.cover(off, n)
	return n, nil
}

func (d *spyDevice) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncCalls++
	if d.failSyncOnce {
		d.failSyncOnce = false
		return errShortWrite
	}
	return nil
}

func (d *spyDevice) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.data)), nil
}
