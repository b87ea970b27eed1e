// Package worker implements the Wipe Worker of spec §4.F: runs one device
// end-to-end through its method's expanded pass list, publishing progress
// and lifecycle events as it goes.
//
// Grounded on internal/game/table.go's Table: a goroutine-per-entity model
// with a stopChan closed by Cancel, a sync.WaitGroup that Join waits on,
// and a context.Context carried through for cooperative cancellation.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wipeengine/internal/executor"
	"wipeengine/internal/pattern"
	"wipeengine/internal/prng"
	"wipeengine/internal/stats"
	"wipeengine/internal/wipe"
	"wipeengine/pkg/entropy"
)

// EventSink is the external-collaborator boundary a worker publishes
// lifecycle events to (§5's single-writer queue external to the core).
type EventSink interface {
	Publish(wipe.Event)
}

// Handle is returned by Start; Wait blocks until the worker finishes and
// yields the terminal DeviceContext.
type Handle struct {
	DevicePath string

	done   chan struct{}
	mu     sync.Mutex
	result wipe.DeviceContext
}

// Wait blocks until the worker completes.
func (h *Handle) Wait() wipe.DeviceContext {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *Handle) finish(ctx wipe.DeviceContext) {
	h.mu.Lock()
	h.result = ctx
	h.mu.Unlock()
	close(h.done)
}

// Worker runs one device's wipe. Construct with New, launch with Start.
type Worker struct {
	devicePath string
	dev        executor.BlockDevice
	sectorSize int64
	sizeBytes  int64
	method     wipe.Method
	prngID     prng.ID
	syncRate   int
	entropySrc *entropy.Source
	tracker    *stats.Tracker
	sink       EventSink

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Worker. sizeBytes and sectorSize come from querying the
// already-open device; method is the Method Engine's expansion of the
// job's configuration.
func New(devicePath string, dev executor.BlockDevice, sectorSize, sizeBytes int64, method wipe.Method, prngID prng.ID, syncRate int, entropySrc *entropy.Source, sink EventSink) *Worker {
	totalBytes := sizeBytes * int64(len(method.Passes))
	roundSize := sizeBytes * int64(method.PassesPerRound)
	if roundSize == 0 {
		roundSize = totalBytes
	}

	return &Worker{
		devicePath: devicePath,
		dev:        dev,
		sectorSize: sectorSize,
		sizeBytes:  sizeBytes,
		method:     method,
		prngID:     prngID,
		syncRate:   syncRate,
		entropySrc: entropySrc,
		sink:       sink,
		tracker:    stats.NewTracker(devicePath, roundSize, totalBytes, method.Rounds, len(method.Passes)),
		stopChan:   make(chan struct{}),
	}
}

// Tracker returns the worker's stats Tracker for registration with the
// Statistics observer.
func (w *Worker) Tracker() *stats.Tracker { return w.tracker }

// Start launches the worker's run loop in its own goroutine and returns a
// Handle whose Wait yields the terminal DeviceContext.
func (w *Worker) Start(parent context.Context) *Handle {
	handle := &Handle{DevicePath: w.devicePath, done: make(chan struct{})}
	runCtx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-runCtx.Done():
		}
	}()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		w.run(runCtx, handle)
	}()

	return handle
}

// Cancel requests termination. Must be observed by the worker within one
// block of work, per spec §4.F.
func (w *Worker) Cancel() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// Join blocks until the worker's goroutine has exited.
func (w *Worker) Join() {
	w.wg.Wait()
}

func (w *Worker) publish(kind, detail string) {
	if w.sink == nil {
		return
	}
	w.sink.Publish(wipe.Event{DevicePath: w.devicePath, Kind: kind, Detail: detail, At: time.Now()})
}

func (w *Worker) run(ctx context.Context, handle *Handle) {
	dc := wipe.DeviceContext{
		DevicePath:        w.devicePath,
		LogicalSectorSize: int(w.sectorSize),
		SizeBytes:         w.sizeBytes,
		Selection:         wipe.Selected,
		PRNGID:            string(w.prngID),
		RoundTotal:        w.method.Rounds,
		PassTotal:         len(w.method.Passes),
		StartedAt:         time.Now(),
		WipeStatus:        wipe.Running,
	}

	var progressTotal int64 // bytes processed across all passes (write + verify), for round/pass percentage
	var roundBytesBase int64
	cancelled := false
	fatal := false

passLoop:
	for i, ps := range w.method.Passes {
		select {
		case <-ctx.Done():
			cancelled = true
			break passLoop
		default:
		}

		passWithinRound := 0
		if w.method.PassesPerRound > 0 {
			passWithinRound = i % w.method.PassesPerRound
		}
		if passWithinRound == 0 {
			roundBytesBase = 0
		}

		roundWorking := 1
		if w.method.PassesPerRound > 0 {
			roundWorking = i/w.method.PassesPerRound + 1
			if roundWorking > w.method.Rounds {
				roundWorking = w.method.Rounds
			}
		}

		dc.CurrentPass = ps.Kind
		dc.RoundWorking = roundWorking
		dc.PassWorking = i + 1
		w.publish("pass-started", fmt.Sprintf("pass %d/%d (%s)", i+1, len(w.method.Passes), ps.Kind))

		var seed []byte
		var src *pattern.Source
		if ps.Pattern.IsRandom() {
			s, err := w.entropySrc.Read(prng.MinSeedLen)
			if err != nil {
				fatal = true
				break passLoop
			}
			seed = s
			dc.SeedLen = len(seed)

			stream, err := prng.New(w.prngID, seed)
			if err != nil {
				fatal = true
				break passLoop
			}
			src = pattern.NewRandom(stream)
		} else {
			src = pattern.NewConstant(ps.Pattern)
		}

		dir := executor.Write
		if ps.Kind == wipe.PassVerify {
			dir = executor.Verify
		}

		base := roundBytesBase
		progress := func(offset int64) {
			w.tracker.Update(ps.Kind.String(), roundWorking, i+1, progressTotal+offset, base+offset)
		}

		out, _ := executor.Execute(ctx, w.dev, w.sizeBytes, w.sectorSize, src, dir, w.syncRate, progress)

		progressTotal += out.BytesProcessed
		roundBytesBase += out.BytesProcessed
		dc.PassErrors += int64(out.PassErrors)
		dc.VerifyErrors += out.VerifyErrors
		dc.FsyncErrors += int64(out.FsyncErrors)
		if dir == executor.Write {
			dc.BytesErased += out.BytesProcessed
		}
		w.tracker.RecordErrors(dc.PassErrors, dc.VerifyErrors, dc.FsyncErrors)

		if out.Status == wipe.ResultCancelled {
			cancelled = true
			break passLoop
		}
		if out.Status == wipe.ResultFatalIO {
			fatal = true
			break passLoop
		}

		if ps.Verify && dir == executor.Write {
			var vsrc *pattern.Source
			if ps.Pattern.IsRandom() {
				vstream, err := prng.New(w.prngID, seed)
				if err != nil {
					fatal = true
					break passLoop
				}
				vsrc = pattern.NewRandom(vstream)
			} else {
				vsrc = pattern.NewConstant(ps.Pattern)
			}

			vprogress := func(offset int64) {
				w.tracker.Update(wipe.PassVerify.String(), roundWorking, i+1, progressTotal+offset, roundBytesBase+offset)
			}
			vout, _ := executor.Execute(ctx, w.dev, w.sizeBytes, w.sectorSize, vsrc, executor.Verify, w.syncRate, vprogress)

			progressTotal += vout.BytesProcessed
			roundBytesBase += vout.BytesProcessed
			dc.PassErrors += int64(vout.PassErrors)
			dc.VerifyErrors += vout.VerifyErrors
			w.tracker.RecordErrors(dc.PassErrors, dc.VerifyErrors, dc.FsyncErrors)

			if vout.Status == wipe.ResultCancelled {
				cancelled = true
				break passLoop
			}
		}

		w.publish("pass-completed", fmt.Sprintf("pass %d/%d (%s) done", i+1, len(w.method.Passes), ps.Kind))
	}

	switch {
	case fatal:
		dc.Result = wipe.ResultFatalIO
		w.publish("error", "fatal I/O error, aborting device")
	case cancelled:
		dc.Result = wipe.ResultCancelled
		w.publish("error", "cancelled")
	case dc.VerifyErrors > 0:
		dc.Result = wipe.ResultVerifyFailed
	default:
		dc.Result = wipe.ResultOK
	}

	dc.EndedAt = time.Now()
	dc.WipeStatus = wipe.Done
	w.tracker.Finish(dc.Result)
	w.publish("device-finished", fmt.Sprintf("result=%s bytes_erased=%d", dc.Result, dc.BytesErased))

	handle.finish(dc)
}
