// Package stats implements the Statistics & ETA component of spec §4.G:
// derived throughput/percent/ETA computed from the counters each worker
// publishes into a mutex-guarded Tracker. A worker's Update waits while an
// observer's Snapshot holds the Tracker's read lock.
//
// Grounded on internal/fraud/risk_scorer.go's RiskScoreCache (a
// mutex-guarded map of small cached values recomputed on a TTL) — here the
// "cache" is the live per-device Tracker, recomputed on every Update call
// instead of a timer.
package stats

import (
	"math"
	"sync"
	"time"

	"wipeengine/internal/wipe"
)

// emaAlpha is the exponential-moving-average smoothing factor for
// throughput, per spec §4.G.
const emaAlpha = 0.2

// Tracker accumulates one device's progress and derives throughput,
// percent-complete, and ETA on demand. Safe for concurrent use: a single
// worker goroutine calls Update, any number of observers call Snapshot.
type Tracker struct {
	mu sync.RWMutex

	devicePath string
	roundSize  int64
	totalBytes int64

	phase         string
	roundWorking  int
	roundTotal    int
	passWorking   int
	passTotal     int
	bytesErased   int64
	bytesThisRnd  int64
	passErrors    int64
	verifyErrors  int64
	fsyncErrors   int64

	throughput float64
	lastSample time.Time
	lastBytes  int64
	startedAt  time.Time

	result wipe.Result
	done   bool
}

// NewTracker builds a Tracker for one device. roundSize and totalBytes come
// from the Wipe Worker's method expansion (Σ pass_length, and that product
// times rounds plus an optional final blank). Registering a Tracker marks
// the device active on the wipeengine_devices_active gauge until Finish.
func NewTracker(devicePath string, roundSize, totalBytes int64, roundTotal, passTotal int) *Tracker {
	DevicesActive.Inc()
	return &Tracker{
		devicePath: devicePath,
		roundSize:  roundSize,
		totalBytes: totalBytes,
		roundTotal: roundTotal,
		passTotal:  passTotal,
		lastSample: time.Now(),
		startedAt:  time.Now(),
	}
}

// Update is called by the worker after every chunk or phase transition. It
// takes the Tracker's write lock, so it waits for any Snapshot in progress
// to release the read lock.
func (t *Tracker) Update(phase string, roundWorking, passWorking int, bytesErased, bytesThisRound int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	dt := now.Sub(t.lastSample).Seconds()
	if dt >= 1.0 {
		instant := float64(bytesErased-t.lastBytes) / dt
		if t.throughput == 0 {
			t.throughput = instant
		} else {
			t.throughput = emaAlpha*instant + (1-emaAlpha)*t.throughput
		}
		t.lastSample = now
		t.lastBytes = bytesErased
	}

	deltaBytes := bytesErased - t.bytesErased
	t.phase = phase
	t.roundWorking = roundWorking
	t.passWorking = passWorking
	t.bytesErased = bytesErased
	t.bytesThisRnd = bytesThisRound

	RecordDelta(t.devicePath, deltaBytes, t.throughput, 0, 0, 0)
}

// RecordErrors folds in the latest error counters reported by the executor.
func (t *Tracker) RecordErrors(passErrors int64, verifyErrors int64, fsyncErrors int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	deltaPass := passErrors - t.passErrors
	deltaVerify := verifyErrors - t.verifyErrors
	deltaFsync := fsyncErrors - t.fsyncErrors
	t.passErrors = passErrors
	t.verifyErrors = verifyErrors
	t.fsyncErrors = fsyncErrors

	RecordDelta(t.devicePath, 0, t.throughput, deltaPass, deltaVerify, deltaFsync)
}

// Finish marks the device done with its terminal result, records the wipe's
// wall-clock duration, and clears the device from the active gauge.
func (t *Tracker) Finish(result wipe.Result) {
	t.mu.Lock()
	t.result = result
	t.done = true
	devicePath := t.devicePath
	duration := time.Since(t.startedAt)
	t.mu.Unlock()

	DevicesActive.Dec()
	RecordDeviceComplete(devicePath, result.String(), duration.Seconds())
}

// Snapshot computes the derived quantities of spec §4.G under the Tracker's
// read lock: percent_round, eta_seconds, and the smoothed throughput.
func (t *Tracker) Snapshot() wipe.ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	percent := 0.0
	if t.roundSize > 0 {
		percent = float64(t.bytesThisRnd) / float64(t.roundSize) * 100
	}

	throughput := math.Max(t.throughput, 1)
	eta := float64(t.totalBytes-t.bytesErased) / throughput
	if eta < 0 {
		eta = 0
	}

	return wipe.ProgressSnapshot{
		DevicePath:    t.devicePath,
		Phase:         t.phase,
		RoundWorking:  t.roundWorking,
		RoundTotal:    t.roundTotal,
		PassWorking:   t.passWorking,
		PassTotal:     t.passTotal,
		PercentRound:  percent,
		ThroughputBps: t.throughput,
		ETASeconds:    eta,
		BytesErased:   t.bytesErased,
		PassErrors:    t.passErrors,
		VerifyErrors:  t.verifyErrors,
		FsyncErrors:   t.fsyncErrors,
		Result:        t.result,
		Done:          t.done,
	}
}

// Aggregate combines a set of per-device snapshots into the global
// throughput (sum) and global ETA (max), per spec §4.G.
func Aggregate(snaps []wipe.ProgressSnapshot) (globalThroughput, globalETA float64) {
	for _, s := range snaps {
		globalThroughput += s.ThroughputBps
		if s.ETASeconds > globalETA {
			globalETA = s.ETASeconds
		}
	}
	return globalThroughput, globalETA
}

// Registry holds one Tracker per device so the Supervisor and any HTTP
// observer can look snapshots up by path.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Add registers a Tracker under its device path.
func (r *Registry) Add(t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[t.devicePath] = t
}

// Snapshots returns every registered device's current snapshot.
func (r *Registry) Snapshots() []wipe.ProgressSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wipe.ProgressSnapshot, 0, len(r.trackers))
	for _, t := range r.trackers {
		out = append(out, t.Snapshot())
	}
	return out
}

// Get returns the Tracker for a device path, if any.
func (r *Registry) Get(devicePath string) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trackers[devicePath]
	return t, ok
}
